package pipeline

// Thresholds are the minimum confidences for a successful stage to advance
// without asking the user.
type Thresholds struct {
	Intent   float64 `yaml:"intent"`
	Entities float64 `yaml:"entities"`
	Assets   float64 `yaml:"assets"`
	Syntax   float64 `yaml:"syntax"`
	Deck     float64 `yaml:"deck"`
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{Intent: 0.7, Entities: 0.6, Assets: 0.9, Syntax: 0.9, Deck: 0.9}
}

// For returns the threshold of a stage state.
func (t Thresholds) For(s State) float64 {
	switch s {
	case StateRecognizingIntent:
		return t.Intent
	case StateExtractingEntities:
		return t.Entities
	case StateValidatingAssets:
		return t.Assets
	case StateGeneratingSyntax:
		return t.Syntax
	case StateValidatingDeck:
		return t.Deck
	}
	return 1
}
