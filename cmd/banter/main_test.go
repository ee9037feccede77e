package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), &stdout, &stderr, []string{"version"}); err != nil {
		t.Fatalf("run version: %v", err)
	}
	if !strings.Contains(stdout.String(), "banter") {
		t.Errorf("version output missing name: %q", stdout.String())
	}
}

func TestRun_VersionJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), &stdout, &stderr, []string{"-o", "json", "version"}); err != nil {
		t.Fatalf("run version json: %v", err)
	}

	var info map[string]string
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		t.Fatalf("version output is not JSON: %v", err)
	}
	if info["version"] == "" {
		t.Error("version field missing")
	}
}

func TestRun_NoCommandPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), &stdout, &stderr, nil); err != nil {
		t.Fatalf("run with no args: %v", err)
	}
	if !strings.Contains(stdout.String(), "Usage:") {
		t.Error("usage text not printed")
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), &stdout, &stderr, []string{"frobnicate"}); err == nil {
		t.Fatal("unknown command accepted")
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), &stdout, &stderr, []string{"-bogus", "serve"}); err == nil {
		t.Fatal("unknown flag accepted")
	}
}

func TestRun_BadOutputFormat(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), &stdout, &stderr, []string{"-o", "xml", "version"}); err == nil {
		t.Fatal("bad output format accepted")
	}
}

func TestRun_AskRequiresMessage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), &stdout, &stderr, []string{"ask"}); err == nil {
		t.Fatal("ask with no message accepted")
	}
}

func TestRun_StatsRejectsBadDays(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), &stdout, &stderr, []string{"stats", "zero"}); err == nil {
		t.Fatal("stats with non-numeric days accepted")
	}
}
