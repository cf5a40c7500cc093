package llm

// BinaryFilterResult is the binary pain filter's structured response (C3).
type BinaryFilterResult struct {
	IsPain bool `json:"is_pain"`
}

// TaggingResult is the quality tagger's structured response (C4).
type TaggingResult struct {
	Topics   []string `json:"topics"`
	Persona  string   `json:"persona"`
	Severity string   `json:"severity"`
}

// TopicMerge is one {from,to} pair proposed by the topic-merger's LLM pass (C7).
type TopicMerge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TopicMergePlan is the full response from the topic-merger's LLM pass.
type TopicMergePlan struct {
	Merges []TopicMerge `json:"merges"`
}

// ProductConcept is the synthesizer's structured response (C8).
type ProductConcept struct {
	ProductName    string   `json:"product_name"`
	Tagline        string   `json:"tagline"`
	HowItWorks     []string `json:"how_it_works"`
	TargetCustomer string   `json:"target_customer"`
}

// MarketEstimateResult is the market estimator's structured response (C13).
type MarketEstimateResult struct {
	TAM       string `json:"tam"`
	SAM       string `json:"sam"`
	Rationale string `json:"rationale"`
}

// FeatureExtractionResult is the feature extractor's structured response (C13).
type FeatureExtractionResult struct {
	Features []struct {
		Name      string `json:"name"`
		Type      string `json:"type"`
		Rationale string `json:"rationale"`
	} `json:"features"`
}

// SentimentResult is the competitor miner's optional LLM sentiment override (C12).
type SentimentResult struct {
	Sentiment  string `json:"sentiment"`
	FeatureGap string `json:"feature_gap"`
}
