// Package build summarizes a component selection: slot progress, total price,
// compatibility issues and an estimated performance score.
package build

import (
	"strconv"
	"strings"

	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/shopspring/decimal"
)

// MaxScore caps every performance score
const MaxScore = 100

// Selection maps a slot to the component chosen for it
type Selection map[models.Category]models.Component

// Compatibility is the verdict of the rule set. Compatible is true iff Issues is empty.
type Compatibility struct {
	Compatible bool     `json:"compatible"`
	Issues     []string `json:"issues"`
}

// Performance holds the heuristic scores and power estimate of a selection
type Performance struct {
	Gaming              int `json:"gaming"`
	Workstation         int `json:"workstation"`
	Streaming           int `json:"streaming"`
	EstimatedWatts      int `json:"estimatedWatts"`
	RecommendedPSUWatts int `json:"recommendedPsuWatts"`
}

// Score returns the score for a use case. Use cases without a dedicated score
// (office, budget, custom) report the gaming score.
func (p Performance) Score(u models.UseCase) int {
	switch u {
	case models.UseCaseWorkstation:
		return p.Workstation
	case models.UseCaseStreaming:
		return p.Streaming
	default:
		return p.Gaming
	}
}

// Summary describes a selection
type Summary struct {
	FilledSlots   int             `json:"filledSlots"`
	TotalSlots    int             `json:"totalSlots"`
	Progress      float64         `json:"progress"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Compatibility Compatibility   `json:"compatibility"`
	Performance   Performance     `json:"performance"`
}

// Aggregator evaluates selections against a rule set
type Aggregator struct {
	rules *RuleSet
}

// NewAggregator returns an aggregator using rs, or the embedded rules when rs is nil
func NewAggregator(rs *RuleSet) *Aggregator {
	if rs == nil {
		rs = DefaultRules()
	}
	return &Aggregator{rules: rs}
}

// Summarize computes progress, price, compatibility and performance
func (a *Aggregator) Summarize(sel Selection) Summary {
	filled := 0
	for _, slot := range models.Categories {
		if _, ok := sel[slot]; ok {
			filled++
		}
	}
	return Summary{
		FilledSlots:   filled,
		TotalSlots:    len(models.Categories),
		Progress:      float64(filled) / float64(len(models.Categories)),
		TotalPrice:    TotalPrice(sel),
		Compatibility: a.Check(sel),
		Performance:   a.Performance(sel),
	}
}

// TotalPrice sums the price of every selected component
func TotalPrice(sel Selection) decimal.Decimal {
	total := decimal.Zero
	for _, slot := range models.Categories {
		if c, ok := sel[slot]; ok {
			total = total.Add(c.Price)
		}
	}
	return total
}

// Check applies every rule. A rule whose slots or keys are missing is skipped.
func (a *Aggregator) Check(sel Selection) Compatibility {
	issues := []string{}
	for _, r := range a.rules.Rules {
		if msg, violated := a.apply(r, sel); violated {
			issues = append(issues, msg)
		}
	}
	return Compatibility{Compatible: len(issues) == 0, Issues: issues}
}

func (a *Aggregator) apply(r Rule, sel Selection) (string, bool) {
	left, ok := sel[r.Left.Slot]
	if !ok {
		return "", false
	}

	switch r.Kind {
	case KindIntersects:
		right, ok := sel[r.Right.Slot]
		if !ok {
			return "", false
		}
		lv := left.Specifications.Strings(r.Left.Key)
		rv := right.Specifications.Strings(r.Right.Key)
		if len(lv) == 0 || len(rv) == 0 || intersects(lv, rv) {
			return "", false
		}
		return render(r.Message, strings.Join(lv, ", "), strings.Join(rv, ", "), ""), true

	case KindMax:
		right, ok := sel[r.Right.Slot]
		if !ok {
			return "", false
		}
		lv, lok, lerr := left.Specifications.Number(r.Left.Key)
		rv, rok, rerr := right.Specifications.Number(r.Right.Key)
		if !lok || !rok || lerr != nil || rerr != nil || lv <= rv {
			return "", false
		}
		return render(r.Message, formatNumber(lv), formatNumber(rv), ""), true

	case KindPowerHeadroom:
		wattage, ok, err := left.Specifications.Number(r.Left.Key)
		if !ok || err != nil {
			return "", false
		}
		draw := a.estimatedWatts(sel)
		required := a.recommendedWatts(draw)
		if wattage >= float64(required) {
			return "", false
		}
		return render(r.Message, formatNumber(wattage), strconv.Itoa(required), strconv.Itoa(draw)), true
	}
	return "", false
}

// Performance scores the CPU and GPU against the lookup table and estimates power draw
func (a *Aggregator) Performance(sel Selection) Performance {
	var p Performance
	for _, slot := range []models.Category{models.CategoryCPU, models.CategoryGPU} {
		c, ok := sel[slot]
		if !ok {
			continue
		}
		if e, ok := a.lookup(c.Name); ok {
			p.Gaming += e.Gaming
			p.Workstation += e.Workstation
			p.Streaming += e.Streaming
		}
	}
	p.Gaming = min(p.Gaming, MaxScore)
	p.Workstation = min(p.Workstation, MaxScore)
	p.Streaming = min(p.Streaming, MaxScore)
	p.EstimatedWatts = a.estimatedWatts(sel)
	p.RecommendedPSUWatts = a.recommendedWatts(p.EstimatedWatts)
	return p
}

// estimatedWatts is the base load plus the table wattage of the CPU and GPU, falling back
// to their TDP specification when the table has no entry
func (a *Aggregator) estimatedWatts(sel Selection) int {
	watts := a.rules.BaseLoadWatts
	for _, slot := range []models.Category{models.CategoryCPU, models.CategoryGPU} {
		c, ok := sel[slot]
		if !ok {
			continue
		}
		if e, ok := a.lookup(c.Name); ok {
			watts += e.Watts
			continue
		}
		watts += ratedTDP(c)
	}
	return watts
}

// ratedTDP reads the TDP of a CPU or GPU from its typed specifications
func ratedTDP(c models.Component) int {
	specs, err := models.DecodeSpecs(c.Category, c.Specifications)
	if err != nil {
		return 0
	}
	switch s := specs.(type) {
	case models.CPUSpecs:
		return s.TDP
	case models.GPUSpecs:
		return s.TDP
	}
	return 0
}

func (a *Aggregator) recommendedWatts(draw int) int {
	return int(decimal.NewFromInt(int64(draw)).Mul(decimal.NewFromFloat(a.rules.SafetyMargin)).Ceil().IntPart())
}

func (a *Aggregator) lookup(name string) (PerformanceEntry, bool) {
	lower := strings.ToLower(name)
	for _, e := range a.rules.Performance {
		if strings.Contains(lower, e.Pattern) {
			return e, true
		}
	}
	return PerformanceEntry{}, false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if strings.EqualFold(x, y) {
				return true
			}
		}
	}
	return false
}

func render(msg, left, right, draw string) string {
	return strings.NewReplacer("{left}", left, "{right}", right, "{draw}", draw).Replace(msg)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
