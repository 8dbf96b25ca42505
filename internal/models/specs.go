package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Specifications holds a component's raw specification values (string, number or list)
type Specifications map[string]any

// Value implements driver.Valuer
func (s Specifications) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (s *Specifications) Scan(src any) error {
	return scanJSON(src, s)
}

// Text returns the value for key as a string, or "" when absent
func (s Specifications) Text(key string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []any:
		return strings.Join(s.Strings(key), ", ")
	default:
		return fmt.Sprint(t)
	}
}

// Strings returns the value for key as a set of strings. Lists are flattened and
// comma-separated strings are split.
func (s Specifications) Strings(key string) []string {
	v, ok := s[key]
	if !ok || v == nil {
		return nil
	}
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			out = append(out, strings.TrimSpace(fmt.Sprint(item)))
		}
	case []string:
		for _, item := range t {
			out = append(out, strings.TrimSpace(item))
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	default:
		out = append(out, fmt.Sprint(t))
	}
	return out
}

// Number returns the value for key as a number. Strings such as "336mm" or "850W"
// yield their leading numeric part.
func (s Specifications) Number(key string) (float64, bool, error) {
	v, ok := s[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	n, err := toNumber(v)
	if err != nil {
		return 0, true, fmt.Errorf("spec %q: %w", key, err)
	}
	return n, true, nil
}

// Values flattens every specification value into strings, sorted by key
func (s Specifications) Values() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []string
	for _, k := range keys {
		out = append(out, s.Strings(k)...)
	}
	return out
}

func toNumber(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		trimmed := strings.TrimSpace(t)
		end := 0
		for i, r := range trimmed {
			if unicode.IsDigit(r) || r == '.' || (i == 0 && r == '-') {
				end = i + 1
				continue
			}
			break
		}
		if end == 0 {
			return 0, fmt.Errorf("%q is not numeric", t)
		}
		return strconv.ParseFloat(trimmed[:end], 64)
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}

// Specs is the typed view of a component's specifications, one shape per category
type Specs interface {
	Category() Category
}

type CPUSpecs struct {
	Socket     string
	Cores      int
	Threads    int
	BaseClock  float64
	BoostClock float64
	TDP        int
}

func (CPUSpecs) Category() Category { return CategoryCPU }

type GPUSpecs struct {
	Memory   string
	LengthMM int
	TDP      int
}

func (GPUSpecs) Category() Category { return CategoryGPU }

type RAMSpecs struct {
	Type       string
	CapacityGB int
	SpeedMHz   int
}

func (RAMSpecs) Category() Category { return CategoryRAM }

type MotherboardSpecs struct {
	Sockets     []string
	MemoryTypes []string
	FormFactor  string
}

func (MotherboardSpecs) Category() Category { return CategoryMotherboard }

type StorageSpecs struct {
	Type       string
	CapacityGB int
}

func (StorageSpecs) Category() Category { return CategoryStorage }

type PSUSpecs struct {
	Wattage    int
	Efficiency string
}

func (PSUSpecs) Category() Category { return CategoryPSU }

type CaseSpecs struct {
	FormFactors    []string
	MaxGPULengthMM int
}

func (CaseSpecs) Category() Category { return CategoryCase }

type CoolerSpecs struct {
	Sockets   []string
	TDPRating int
}

func (CoolerSpecs) Category() Category { return CategoryCooler }

// DecodeSpecs converts raw specifications into the typed record for the category.
// Absent keys stay zero; present keys with unusable values are rejected.
func DecodeSpecs(category Category, raw Specifications) (Specs, error) {
	d := specDecoder{raw: raw}
	var out Specs
	switch category {
	case CategoryCPU:
		out = CPUSpecs{
			Socket:     raw.Text("socket"),
			Cores:      d.int("cores"),
			Threads:    d.int("threads"),
			BaseClock:  d.float("baseClock"),
			BoostClock: d.float("boostClock"),
			TDP:        d.int("tdp"),
		}
	case CategoryGPU:
		out = GPUSpecs{
			Memory:   raw.Text("memory"),
			LengthMM: d.int("length"),
			TDP:      d.int("tdp"),
		}
	case CategoryRAM:
		out = RAMSpecs{
			Type:       raw.Text("type"),
			CapacityGB: d.int("capacity"),
			SpeedMHz:   d.int("speed"),
		}
	case CategoryMotherboard:
		out = MotherboardSpecs{
			Sockets:     raw.Strings("socket"),
			MemoryTypes: raw.Strings("memoryType"),
			FormFactor:  raw.Text("formFactor"),
		}
	case CategoryStorage:
		out = StorageSpecs{
			Type:       raw.Text("type"),
			CapacityGB: d.int("capacity"),
		}
	case CategoryPSU:
		out = PSUSpecs{
			Wattage:    d.int("wattage"),
			Efficiency: raw.Text("efficiency"),
		}
	case CategoryCase:
		out = CaseSpecs{
			FormFactors:    raw.Strings("formFactor"),
			MaxGPULengthMM: d.int("maxGpuLength"),
		}
	case CategoryCooler:
		out = CoolerSpecs{
			Sockets:   raw.Strings("socket"),
			TDPRating: d.int("tdpRating"),
		}
	default:
		return nil, fmt.Errorf("unknown category %q", category)
	}
	if d.err != nil {
		return nil, d.err
	}
	return out, nil
}

type specDecoder struct {
	raw Specifications
	err error
}

func (d *specDecoder) float(key string) float64 {
	n, _, err := d.raw.Number(key)
	if err != nil && d.err == nil {
		d.err = err
	}
	return n
}

func (d *specDecoder) int(key string) int {
	return int(d.float(key))
}
