package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/mirzaik-wcc/contractorlens/internal/config"
	estimatedomain "github.com/mirzaik-wcc/contractorlens/internal/estimate/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/takeoff"
)

var estimateNamespace = uuid.MustParse("5b0c7a0e-3f5d-4f7e-9a51-6c1f3f0e2d44")

type fingerprintInput struct {
	EngineVersion string                  `json:"engine_version"`
	JobType       string                  `json:"job_type"`
	FinishLevel   string                  `json:"finish_level"`
	Zip           string                  `json:"zip"`
	Settings      estimatedomain.Settings `json:"settings"`
	Takeoff       takeoff.Takeoff         `json:"takeoff"`
	Rules         config.PricingRules     `json:"rules"`
}

// Fingerprint identifies a request by its normalized content: measurements rounded to
// cents, the 5-digit ZIP, the effective settings and the pricing rules in force.
// Requests that only differ below that precision share a fingerprint.
func Fingerprint(req estimatedomain.ValidatedRequest, settings estimatedomain.Settings, rules config.PricingRules, engineVersion string) (string, error) {
	input := fingerprintInput{
		EngineVersion: engineVersion,
		JobType:       string(req.JobType),
		FinishLevel:   string(req.FinishLevel),
		Zip:           req.Zip5,
		Settings: estimatedomain.Settings{
			HourlyRate:       settings.HourlyRate.Round(2),
			MarkupPercentage: settings.MarkupPercentage.Round(2),
			TaxRate:          settings.TaxRate.Round(4),
		},
		Rules: rules,
	}
	if req.Takeoff != nil {
		input.Takeoff = normalizeTakeoff(*req.Takeoff)
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("fingerprint request: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// EstimateID is a stable identifier derived from the fingerprint.
func EstimateID(fingerprint string) string {
	return uuid.NewSHA1(estimateNamespace, []byte(fingerprint)).String()
}

func normalizeTakeoff(t takeoff.Takeoff) takeoff.Takeoff {
	t.Walls = normalizeMeasurements(t.Walls)
	t.Floors = normalizeMeasurements(t.Floors)
	t.Ceilings = normalizeMeasurements(t.Ceilings)
	t.Kitchens = normalizeMeasurements(t.Kitchens)
	t.Bathrooms = normalizeMeasurements(t.Bathrooms)
	t.Conditions.WasteHintPercent = round2(t.Conditions.WasteHintPercent)
	return t
}

func normalizeMeasurements(in []takeoff.Measurement) []takeoff.Measurement {
	if len(in) == 0 {
		return nil
	}
	out := make([]takeoff.Measurement, len(in))
	for i, m := range in {
		m.Area = round2(m.Area)
		m.ComplexityModifier = round2(m.ComplexityModifier)
		out[i] = m
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
