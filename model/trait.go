package model

// TraitCategory groups descriptive traits by tone.
type TraitCategory string

const (
	TraitPositive   TraitCategory = "positive"
	TraitNegative   TraitCategory = "negative"
	TraitEmotional  TraitCategory = "emotional"
	TraitBehavioral TraitCategory = "behavioral"
)

// TraitEvidence is one sentence a trait was found in.
type TraitEvidence struct {
	SentenceID int      `json:"sentence_id"`
	Sentence   string   `json:"sentence"`
	Traits     []string `json:"traits"`
}

// TraitProfile summarizes the traits found for one character.
type TraitProfile struct {
	Character       string                     `json:"character"`
	RawTraits       []string                   `json:"raw_traits"`
	TraitFrequency  map[string]int             `json:"trait_frequency"`
	Classified      map[TraitCategory][]string `json:"classified_traits"`
	DominantTone    TraitCategory              `json:"dominant_tone,omitempty"`
	Evidence        []TraitEvidence            `json:"evidence,omitempty"`
}
