package frontend

// PredictorConfig holds configuration for the branch predictor.
type PredictorConfig struct {
	// BHTSize is the number of entries in the Branch History Table.
	// Must be a power of 2. Default is 1024.
	BHTSize uint32 `json:"bht_size"`
	// BTBSize is the number of entries in the Branch Target Buffer.
	// Must be a power of 2. Default is 256.
	BTBSize uint32 `json:"btb_size"`
}

// DefaultPredictorConfig returns a default configuration.
func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		BHTSize: 1024,
		BTBSize: 256,
	}
}

// PredictorStats holds statistics for the branch predictor.
type PredictorStats struct {
	Predictions    uint64
	Correct        uint64
	Mispredictions uint64
	BTBHits        uint64
	BTBMisses      uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s PredictorStats) Accuracy() float64 {
	resolved := s.Correct + s.Mispredictions
	if resolved == 0 {
		return 0
	}

	return float64(s.Correct) / float64(resolved) * 100
}

// BTBHitRate returns the BTB hit rate as a percentage.
func (s PredictorStats) BTBHitRate() float64 {
	total := s.BTBHits + s.BTBMisses
	if total == 0 {
		return 0
	}

	return float64(s.BTBHits) / float64(total) * 100
}

// Prediction is the direction and target guessed for a branch.
type Prediction struct {
	Taken       bool
	Target      uint64
	TargetKnown bool
}

// Predictor is a bimodal predictor of 2-bit saturating counters with a
// direct-mapped branch target buffer.
type Predictor struct {
	// 0=Strongly Not Taken, 1=Weakly Not Taken, 2=Weakly Taken,
	// 3=Strongly Taken
	bht []uint8

	btb      []btbEntry
	btbValid []bool

	bhtSize uint32
	btbSize uint32

	stats PredictorStats
}

type btbEntry struct {
	pc     uint64
	target uint64
}

// NewPredictor creates a predictor. Zero sizes take the defaults.
func NewPredictor(config PredictorConfig) *Predictor {
	bhtSize := config.BHTSize
	btbSize := config.BTBSize

	if bhtSize == 0 {
		bhtSize = 1024
	}
	if btbSize == 0 {
		btbSize = 256
	}

	p := &Predictor{
		bht:      make([]uint8, bhtSize),
		btb:      make([]btbEntry, btbSize),
		btbValid: make([]bool, btbSize),
		bhtSize:  bhtSize,
		btbSize:  btbSize,
	}
	p.resetCounters()

	return p
}

func (p *Predictor) resetCounters() {
	for i := range p.bht {
		p.bht[i] = 2
	}
}

func (p *Predictor) bhtIndex(pc uint64) uint32 {
	return uint32((pc >> 2) & uint64(p.bhtSize-1))
}

func (p *Predictor) btbIndex(pc uint64) uint32 {
	return uint32((pc >> 2) & uint64(p.btbSize-1))
}

// Predict makes a prediction for the branch at pc.
func (p *Predictor) Predict(pc uint64) Prediction {
	pred := Prediction{Taken: p.bht[p.bhtIndex(pc)] >= 2}

	idx := p.btbIndex(pc)
	if p.btbValid[idx] && p.btb[idx].pc == pc {
		pred.Target = p.btb[idx].target
		pred.TargetKnown = true
		p.stats.BTBHits++
	} else {
		p.stats.BTBMisses++
	}

	p.stats.Predictions++

	return pred
}

// Update trains the predictor with a resolved branch. Mispredicted tells
// whether the core had to redirect fetch for it.
func (p *Predictor) Update(pc uint64, taken bool, target uint64, mispredicted bool) {
	if mispredicted {
		p.stats.Mispredictions++
	} else {
		p.stats.Correct++
	}

	idx := p.bhtIndex(pc)
	counter := p.bht[idx]

	switch {
	case taken && counter < 3:
		p.bht[idx] = counter + 1
	case !taken && counter > 0:
		p.bht[idx] = counter - 1
	}

	if taken {
		b := p.btbIndex(pc)
		p.btb[b] = btbEntry{pc: pc, target: target}
		p.btbValid[b] = true
	}
}

// Stats returns the predictor statistics.
func (p *Predictor) Stats() PredictorStats {
	return p.stats
}

// Reset clears all predictor state and statistics.
func (p *Predictor) Reset() {
	p.resetCounters()

	for i := range p.btbValid {
		p.btbValid[i] = false
	}

	p.stats = PredictorStats{}
}
