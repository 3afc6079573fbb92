package model

// Reward pairs a reward category with its amount. The amount curve itself
// is out of scope (spec.md §1: "reward-amount curve specifics"); this
// module only needs to compare and carry rewards through headers.
type Reward struct {
	Category string `json:"category"`
	Amount   uint64 `json:"amount"`
}

// GenesisRewardCategory names the category assigned to the genesis block,
// mirroring original_source's reward::reward::GENESIS_REWARD constant.
const GenesisRewardCategory = "genesis"

// RewardState is the abstract collaborator that knows which reward
// categories are currently valid and what the next reward should be. The
// concrete curve/emission schedule is out of scope (spec.md §1); callers
// inject whatever implementation models their economics.
type RewardState interface {
	// ValidReward reports whether category is currently an acceptable
	// reward category.
	ValidReward(category string) bool

	// NextReward returns the reward a miner should receive for the block
	// that follows the one described by current.
	NextReward(current Reward) Reward
}

// StaticRewardState is a minimal RewardState that accepts a fixed set of
// categories and always proposes the same next reward. It exists so the
// block package is independently testable without a real economic model,
// matching how the original's RewardState is injected as a dependency
// rather than owned by Block (original_source/block/src/block.rs's `valid`
// takes `dependant_two: &RewardState`).
type StaticRewardState struct {
	Categories map[string]bool
	Next       Reward
}

// NewStaticRewardState builds a StaticRewardState accepting the genesis
// category plus any extras supplied.
func NewStaticRewardState(next Reward, extraCategories ...string) *StaticRewardState {
	categories := map[string]bool{GenesisRewardCategory: true}
	for _, c := range extraCategories {
		categories[c] = true
	}
	return &StaticRewardState{Categories: categories, Next: next}
}

func (s *StaticRewardState) ValidReward(category string) bool {
	return s.Categories[category]
}

func (s *StaticRewardState) NextReward(_ Reward) Reward {
	return s.Next
}
