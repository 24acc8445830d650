// Package options defines the nested option bundle read from the solver's
// JSON configuration file and threaded through every component as a single
// value, grounded on option_utility.h's per-section structs (§4.K, §6).
package options

import (
	"time"

	"github.com/katalvaran/tabuforge/internal/solverlog"
	"github.com/katalvaran/tabuforge/pkg/preprocess"
)

// SelectionMode chooses how the preprocessing selection-extraction pass
// orders candidate constraints.
type SelectionMode int

const (
	SelectionOff SelectionMode = iota
	SelectionDefined
	SelectionSmaller
	SelectionLarger
	SelectionIndependent
	SelectionUserDefined
)

var selectionModeNames = map[string]SelectionMode{
	"Off":          SelectionOff,
	"Defined":      SelectionDefined,
	"Smaller":      SelectionSmaller,
	"Larger":       SelectionLarger,
	"Independent":  SelectionIndependent,
	"UserDefined":  SelectionUserDefined,
}

// Strategy converts the selection mode into the preprocessing package's
// strategy enum. Off and UserDefined have no corresponding
// preprocess.SelectionStrategy; ok is false for both, and the CLI then runs
// the pass in DefinedOrder, so Off does not skip it. Constraints named via
// Container.SetUserDefinedSelectionConstraints are candidates in every mode.
func (m SelectionMode) Strategy() (preprocess.SelectionStrategy, bool) {
	switch m {
	case SelectionDefined:
		return preprocess.DefinedOrder, true
	case SelectionSmaller:
		return preprocess.AscendingSize, true
	case SelectionLarger:
		return preprocess.DescendingSize, true
	case SelectionIndependent:
		return preprocess.Independent, true
	default:
		return 0, false
	}
}

// ImprovabilityScreeningMode chooses how aggressively the tabu-search core
// re-screens variable improvability flags between iterations. TabuForge
// implements only the Automatic behavior (pkg/model.Container.
// RefreshImprovability rescans every mutable variable each iteration); the
// other ordinals are accepted for option-file compatibility and otherwise
// ignored (see DESIGN.md).
type ImprovabilityScreeningMode int

const (
	ScreeningOff ImprovabilityScreeningMode = iota
	ScreeningSoft
	ScreeningAggressive
	ScreeningIntensive
	ScreeningAutomatic
)

var screeningModeNames = map[string]ImprovabilityScreeningMode{
	"Off":        ScreeningOff,
	"Soft":       ScreeningSoft,
	"Aggressive": ScreeningAggressive,
	"Intensive":  ScreeningIntensive,
	"Automatic":  ScreeningAutomatic,
}

// TabuMode chooses whether a move is considered tabu when All of its
// altered variables are tabu-recent, or when Any of them are.
type TabuMode int

const (
	TabuAll TabuMode = iota
	TabuAny
)

var tabuModeNames = map[string]TabuMode{
	"All": TabuAll,
	"Any": TabuAny,
}

// ChainMoveReduceMode chooses the order in which the chain-move composer
// tries candidate pairs: FIFO order (OverlapRate) or a random shuffle.
// Neither mode drops candidates.
type ChainMoveReduceMode int

const (
	OverlapRate ChainMoveReduceMode = iota
	Shuffle
)

var chainMoveReduceModeNames = map[string]ChainMoveReduceMode{
	"OverlapRate": OverlapRate,
	"Shuffle":     Shuffle,
}

// General holds the top-level options with no natural sub-object, mirroring
// option_utility.h's ungrouped fields.
type General struct {
	IterationMax        int           `json:"iteration_max"`
	TimeMax              time.Duration `json:"-"`
	TimeMaxSeconds       float64       `json:"time_max"`
	TimeOffsetSeconds    float64       `json:"time_offset"`
	TargetObjectiveValue float64       `json:"target_objective_value"`
	Seed                 int64         `json:"seed"`
	Verbose              solverlog.Verbose `json:"-"`
	VerboseRaw           interface{}   `json:"verbose"`

	IsEnabledLagrangeDual          bool `json:"is_enabled_lagrange_dual"`
	IsEnabledLocalSearch            bool `json:"is_enabled_local_search"`
	IsEnabledPresolve                bool `json:"is_enabled_presolve"`
	IsEnabledInitialValueCorrection  bool `json:"is_enabled_initial_value_correction"`
	IsEnabledCollectHistoricalData  bool `json:"is_enabled_collect_historical_data"`
	HistoricalDataCapacity          int  `json:"historical_data_capacity"`
}

// Penalty holds the outer solver's penalty-controller rates (§4.K).
type Penalty struct {
	RelaxingRate                   float64 `json:"penalty_coefficient_relaxing_rate"`
	TighteningRate                  float64 `json:"penalty_coefficient_tightening_rate"`
	UpdatingBalance                float64 `json:"penalty_coefficient_updating_balance"`
	ResetCountThreshold             int     `json:"penalty_coefficient_reset_count_threshold"`
	InitialPenaltyCoefficient       float64 `json:"initial_penalty_coefficient"`
	IsEnabledGroupingPenaltyCoefficient bool `json:"is_enabled_grouping_penalty_coefficient"`
}

// Parallel holds the fan-out toggles. IsEnabledParallelNeighborhoodUpdate
// is passed to neighborhood generation; IsEnabledParallelEvaluation is
// decoded but not consulted, and move evaluation runs sequentially.
type Parallel struct {
	IsEnabledParallelEvaluation        bool `json:"is_enabled_parallel_evaluation"`
	IsEnabledParallelNeighborhoodUpdate bool `json:"is_enabled_parallel_neighborhood_update"`
}

// Preprocess holds the presolve pass's optional behaviors.
type Preprocess struct {
	SelectionMode SelectionMode `json:"-"`
	SelectionModeRaw interface{} `json:"selection_mode"`
}

// Neighborhood holds per-generator enable flags and chain-move tuning.
type Neighborhood struct {
	IsEnabledBinaryMove       bool `json:"is_enabled_binary_move"`
	IsEnabledIntegerMove      bool `json:"is_enabled_integer_move"`
	IsEnabledAggregationMove  bool `json:"is_enabled_aggregation_move"`
	IsEnabledPrecedenceMove   bool `json:"is_enabled_precedence_move"`
	IsEnabledVariableBoundMove bool `json:"is_enabled_variable_bound_move"`
	IsEnabledExclusiveMove    bool `json:"is_enabled_exclusive_move"`
	IsEnabledChainMove        bool `json:"is_enabled_chain_move"`
	IsEnabledUserDefinedMove  bool `json:"is_enabled_user_defined_move"`
	ChainMoveCapacity         int  `json:"chain_move_capacity"`
	ChainMoveReduceMode       ChainMoveReduceMode `json:"-"`
	ChainMoveReduceModeRaw    interface{}         `json:"chain_move_reduce_mode"`

	ImprovabilityScreeningMode    ImprovabilityScreeningMode `json:"-"`
	ImprovabilityScreeningModeRaw interface{}                `json:"improvability_screening_mode"`
}

// Output holds CLI/progress-reporting toggles (not part of option_utility.h
// proper, but needed by the on-disk format §6 describes as sharing the same
// object).
type Output struct {
	IsEnabledPrintingLog bool `json:"is_enabled_printing_log"`
}

// LagrangeDual mirrors lagrange_dual.h's tunables exactly.
type LagrangeDual struct {
	IterationMax        int     `json:"iteration_max"`
	TimeMaxSeconds       float64 `json:"time_max"`
	TimeOffsetSeconds    float64 `json:"time_offset"`
	StepSizeExtendRate   float64 `json:"step_size_extend_rate"`
	StepSizeReduceRate   float64 `json:"step_size_reduce_rate"`
	Tolerance            float64 `json:"tolerance"`
	QueueSize            int     `json:"queue_size"`
	LogInterval          int     `json:"log_interval"`
}

// LocalSearch mirrors local_search's tunables.
type LocalSearch struct {
	IterationMax     int     `json:"iteration_max"`
	TimeMaxSeconds    float64 `json:"time_max"`
	TimeOffsetSeconds float64 `json:"time_offset"`
	LogInterval      int     `json:"log_interval"`
	Seed             int64   `json:"seed"`
}

// TabuSearch mirrors the tabu-search core's tunables, §4.I.
type TabuSearch struct {
	IterationMax                 int     `json:"iteration_max"`
	TimeMaxSeconds                float64 `json:"time_max"`
	TimeOffsetSeconds             float64 `json:"time_offset"`
	LogInterval                  int     `json:"log_interval"`
	InitialTabuTenure             int     `json:"initial_tabu_tenure"`
	TabuTenureRandomizeRate       float64 `json:"tabu_tenure_randomize_rate"`
	InitialModificationFixedRate  float64 `json:"initial_modification_fixed_rate"`
	InitialModificationRandomizeRate float64 `json:"initial_modification_randomize_rate"`
	TabuMode                     TabuMode `json:"-"`
	TabuModeRaw                  interface{} `json:"tabu_mode"`
	MovePreserveRate              float64 `json:"move_preserve_rate"`
	FrequencyPenaltyCoefficient   float64 `json:"frequency_penalty_coefficient"`
	PruningRateThreshold          float64 `json:"pruning_rate_threshold"`
	IsEnabledShuffle              bool    `json:"is_enabled_shuffle"`
	IsEnabledMoveCurtail          bool    `json:"is_enabled_move_curtail"`
	IsEnabledAutomaticBreak        bool    `json:"is_enabled_automatic_break"`
	IsEnabledAutomaticTabuTenureAdjustment bool `json:"is_enabled_automatic_tabu_tenure_adjustment"`
	IsEnabledAutomaticIterationAdjustment  bool `json:"is_enabled_automatic_iteration_adjustment"`
	IsEnabledInitialModification   bool `json:"is_enabled_initial_modification"`
	BiasIncreaseCountThreshold     int  `json:"bias_increase_count_threshold"`
	BiasDecreaseCountThreshold     int  `json:"bias_decrease_count_threshold"`
	IterationIncreaseRate          float64 `json:"iteration_increase_rate"`
	IterationDecreaseRate          float64 `json:"iteration_decrease_rate"`
	IgnoreTabuIfGlobalIncumbent    bool `json:"ignore_tabu_if_global_incumbent"`
	NumberOfInitialModification    int  `json:"number_of_initial_modification"`
	Seed                           int64 `json:"seed"`
}

// Options is the full nested bundle decoded from the solver's JSON option
// file (§6): {general, penalty, parallel, preprocess, neighborhood, output,
// pdlp, lagrange_dual, local_search, tabu_search}. Fields missing from the
// file keep their value from Default(); unknown top-level keys (and
// unknown keys within a known section) are ignored, never rejected.
type Options struct {
	General      General
	Penalty      Penalty
	Parallel     Parallel
	Preprocess   Preprocess
	Neighborhood Neighborhood
	Output       Output
	LagrangeDual LagrangeDual
	LocalSearch  LocalSearch
	TabuSearch   TabuSearch

	// PDLPAccepted records whether a "pdlp" section was present in the
	// source file. PDLP/LP relaxation is an explicit Non-goal; the section
	// is accepted for forward compatibility with the file format and
	// logged once at Debug by the reader, never acted on.
	PDLPAccepted bool
}

// Default returns the option bundle's default values, matching
// option_utility.h's in-struct defaults where the reference documents
// them, and otherwise a conservative value consistent with the rest of the
// bundle.
func Default() *Options {
	return &Options{
		General: General{
			IterationMax:      10000,
			TimeMaxSeconds:    120,
			TargetObjectiveValue: -1e100,
			Seed:              1,
			VerboseRaw:        "Warning",
			IsEnabledPresolve: true,
			IsEnabledInitialValueCorrection: true,
			IsEnabledLocalSearch: true,
		},
		Penalty: Penalty{
			RelaxingRate:             0.90,
			TighteningRate:           1.10,
			UpdatingBalance:          0.50,
			ResetCountThreshold:      10,
			InitialPenaltyCoefficient: 1.0,
		},
		Parallel: Parallel{
			IsEnabledParallelEvaluation:        true,
			IsEnabledParallelNeighborhoodUpdate: true,
		},
		Neighborhood: Neighborhood{
			IsEnabledBinaryMove:      true,
			IsEnabledIntegerMove:     true,
			IsEnabledAggregationMove: true,
			IsEnabledPrecedenceMove:  true,
			IsEnabledVariableBoundMove: true,
			IsEnabledExclusiveMove:   true,
			IsEnabledChainMove:       true,
			ChainMoveCapacity:        10,
		},
		LagrangeDual: LagrangeDual{
			IterationMax:      100,
			TimeMaxSeconds:    10,
			StepSizeExtendRate: 1.05,
			StepSizeReduceRate: 0.95,
			Tolerance:         1e-5,
			QueueSize:         20,
			LogInterval:       10,
		},
		LocalSearch: LocalSearch{
			IterationMax: 10000,
			TimeMaxSeconds: 10,
			LogInterval:  100,
		},
		TabuSearch: TabuSearch{
			IterationMax:                100000,
			TimeMaxSeconds:               60,
			LogInterval:                  100,
			InitialTabuTenure:            10,
			MovePreserveRate:             1.0,
			PruningRateThreshold:         0.95,
			IsEnabledShuffle:             true,
			IsEnabledAutomaticBreak:       true,
			IsEnabledAutomaticTabuTenureAdjustment: true,
			IsEnabledAutomaticIterationAdjustment:  true,
			BiasIncreaseCountThreshold:   10000,
			BiasDecreaseCountThreshold:   4000,
			IterationIncreaseRate:        1.5,
			IterationDecreaseRate:        0.8,
			IgnoreTabuIfGlobalIncumbent:  true,
			Seed:                         1,
		},
	}
}
