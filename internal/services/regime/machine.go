package regime

import (
	"time"

	"RegimePull/internal/domain/models"
)

// StateMachine applies hysteresis with confirmation ticks to a probability
// stream, turning it into a debounced regime label sequence. Entry into
// high_vol requires confirmTicks consecutive probabilities >= probEnter;
// exit requires confirmTicks consecutive probabilities <= probExit. Values
// strictly between the two thresholds reset whichever counter the current
// state is accumulating, so the dead zone never makes progress.
type StateMachine struct {
	probEnter      float64
	probExit       float64
	confirmTicks   int
	fallbackRegime models.Regime
	fallbackProb   float64
}

func NewStateMachine(t Thresholds) *StateMachine {
	return &StateMachine{
		probEnter:      t.Hysteresis.ProbEnter,
		probExit:       t.Hysteresis.ProbExit,
		confirmTicks:   t.Hysteresis.ConfirmTicks,
		fallbackRegime: models.Regime(t.Fallback.Regime),
		fallbackProb:   t.Fallback.Probability,
	}
}

// Advance mutates st with the next observation and reports the outcome.
// ok=false marks missing input: the machine jumps straight to the fallback
// regime without confirmation, even when it is already there (the jump is
// still recorded as a transition). Missing data is never debounced.
//
// Advance never fails; pathological configurations (confirm_ticks <= 0)
// simply transition on the first qualifying tick.
func (sm *StateMachine) Advance(st *models.RegimeState, p float64, ok bool, ts time.Time) models.ClassificationResult {
	prev := st.Current

	if !ok {
		sm.commit(st, sm.fallbackRegime, ts)
		return models.ClassificationResult{
			Regime:          st.Current,
			Probability:     sm.fallbackProb,
			PreviousRegime:  prev,
			RegimeTimestamp: st.ChangedAt,
		}
	}

	switch st.Current {
	case models.RegimeHighVol:
		if p <= sm.probExit {
			st.ExitCount++
			st.EnterCount = 0
			if st.ExitCount >= sm.confirmTicks {
				sm.commit(st, models.RegimeNormal, ts)
			}
		} else {
			st.ExitCount = 0
		}
	default: // normal
		if p >= sm.probEnter {
			st.EnterCount++
			st.ExitCount = 0
			if st.EnterCount >= sm.confirmTicks {
				sm.commit(st, models.RegimeHighVol, ts)
			}
		} else {
			st.EnterCount = 0
		}
	}

	return models.ClassificationResult{
		Regime:          st.Current,
		Probability:     p,
		PreviousRegime:  prev,
		RegimeTimestamp: st.ChangedAt,
	}
}

// commit records a regime transition at ts and zeroes both counters.
func (sm *StateMachine) commit(st *models.RegimeState, to models.Regime, ts time.Time) {
	st.Previous = st.Current
	st.Current = to
	changed := ts
	st.ChangedAt = &changed
	st.EnterCount = 0
	st.ExitCount = 0
}
