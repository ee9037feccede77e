package config

// DefaultFAQ returns the built-in curated question → answer table.
// Keys are matched against normalized (lowercased, trimmed) input.
func DefaultFAQ() map[string]string {
	return map[string]string{
		"what is pm of india":  "The Prime Minister of India is Narendra Modi, who has been serving since May 2014.",
		"who is prime minister": "The current Prime Minister of India is Narendra Modi.",
		"pm india":             "Narendra Modi is the Prime Minister of India.",
		"best ai model":        "Some of the best AI models include GPT-4, Claude, Gemini, and LLaMA. Each excels in different areas like reasoning, coding, or creativity.",
		"ai model":             "Popular AI models include OpenAI GPT series, Google Gemini, Anthropic Claude, and Meta LLaMA.",
		"leader of inc":        "The current president of the Indian National Congress (INC) is Mallikarjun Kharge, elected in October 2022.",
		"inc leader":           "Mallikarjun Kharge is the current president of the Indian National Congress.",
		"rahul gandhi":         "Rahul Gandhi is an Indian politician and member of the Indian National Congress. He served as Congress President from 2017-2019 and is currently a Member of Parliament.",
		"rahul gandhi details": "Rahul Gandhi is the son of Sonia Gandhi and late Rajiv Gandhi. He represents Wayanad constituency in Lok Sabha and is a prominent opposition leader in India.",
		"what time is it":      "I cannot access real-time information, but you can check your device clock.",
		"how are you":          "I am functioning well and ready to help you!",
		"what can you do":      "I can answer questions, provide information, and have conversations with you.",
	}
}

// DefaultKeyTerms returns high-value substrings checked when no FAQ
// entry matches. A hit answers with fixed 0.8 confidence.
func DefaultKeyTerms() map[string]string {
	return map[string]string{
		"ai model": "Some of the best AI models include GPT-4, Claude, Gemini, and LLaMA. Each excels in different areas like reasoning, coding, or creativity.",
		"inc":      "The current president of the Indian National Congress (INC) is Mallikarjun Kharge, elected in October 2022.",
		"rahul":    "Rahul Gandhi is an Indian politician and member of the Indian National Congress. He served as Congress President from 2017-2019 and is currently a Member of Parliament.",
		"gandhi":   "Rahul Gandhi is the son of Sonia Gandhi and late Rajiv Gandhi. He represents Wayanad constituency in Lok Sabha and is a prominent opposition leader in India.",
	}
}

// DefaultIntents returns the seed keyword/example sets per intent. These
// double as the classifier's seed training corpus and as the coverage
// check when the learning loop proposes new intents.
func DefaultIntents() map[string][]string {
	return map[string][]string{
		"greeting":   {"hello", "hi", "hey", "good morning", "good afternoon"},
		"goodbye":    {"bye", "goodbye", "see you", "farewell", "exit"},
		"question":   {"what", "how", "when", "where", "why", "who", "pm", "prime minister"},
		"help":       {"help", "assist", "support", "guide", "can you"},
		"complaint":  {"problem", "issue", "error", "bug", "broken", "not working"},
		"compliment": {"good", "great", "excellent", "amazing", "thank you", "thanks"},
		"general":    {"tell me", "information", "about", "explain", "describe"},
	}
}
