package testdetect

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"booking-payments-backend/internal/models"
)

func productionDetector() *Detector {
	return NewDetector(Config{Environment: "production"})
}

func paymentWith(amount string, snapshot string) *models.Payment {
	d, _ := decimal.NewFromString(amount)
	p := &models.Payment{
		ID:        uuid.New(),
		Reference: "BK-2024-001",
		Amount:    d,
		Status:    "paid",
	}
	if snapshot != "" {
		p.GatewaySnapshot = datatypes.JSON(snapshot)
	}
	return p
}

func TestEvaluate_NoSignals(t *testing.T) {
	res := productionDetector().Evaluate(Input{
		Payment:    paymentWith("73.50", `{"provider":"mastercard","cardNumber":"510510******5100"}`),
		BuyerEmail: "parent@example.com",
	})

	assert.False(t, res.IsTest)
	assert.Equal(t, ConfidenceNone, res.Confidence)
	assert.Empty(t, res.Signals)
}

func TestEvaluate_SandboxCardIsHigh(t *testing.T) {
	res := productionDetector().Evaluate(Input{
		Payment:    paymentWith("73.50", `{"cardNumber":"424242******4242"}`),
		BuyerEmail: "parent@example.com",
	})

	assert.True(t, res.IsTest)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
	require.Len(t, res.Signals, 1)
	assert.Equal(t, "sandbox_card", res.Signals[0].Tag)
}

func TestEvaluate_SandboxProviderIsHigh(t *testing.T) {
	res := productionDetector().Evaluate(Input{
		Payment:    paymentWith("73.50", `{"provider":"stripe-sandbox"}`),
		BuyerEmail: "parent@example.com",
	})

	assert.True(t, res.IsTest)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
}

func TestEvaluate_AllowListedBuyerIsHigh(t *testing.T) {
	detector := NewDetector(Config{
		Environment:  "production",
		TestAccounts: []string{"qa@school.example"},
	})

	// the same payment classifies clean for a normal buyer...
	clean := detector.Evaluate(Input{
		Payment:    paymentWith("73.50", ""),
		BuyerEmail: "parent@example.com",
	})
	assert.False(t, clean.IsTest)
	assert.Equal(t, ConfidenceNone, clean.Confidence)

	// ...and must flip to high once the buyer matches the allow-list
	flagged := detector.Evaluate(Input{
		Payment:    paymentWith("73.50", ""),
		BuyerEmail: "QA@school.example",
	})
	assert.True(t, flagged.IsTest)
	assert.Equal(t, ConfidenceHigh, flagged.Confidence)
}

func TestEvaluate_LoneWeakSignalNeverDecides(t *testing.T) {
	res := productionDetector().Evaluate(Input{
		Payment:    paymentWith("10", ""), // conventional round test amount
		BuyerEmail: "parent@example.com",
	})

	assert.False(t, res.IsTest)
	assert.Equal(t, ConfidenceWeak, res.Confidence)
	require.Len(t, res.Signals, 1)
	assert.Equal(t, "round_amount", res.Signals[0].Tag)
}

func TestEvaluate_LoneMediumSignalDoesNotDecide(t *testing.T) {
	detector := NewDetector(Config{Environment: "staging"})

	res := detector.Evaluate(Input{
		Payment:    paymentWith("73.50", ""),
		BuyerEmail: "parent@example.com",
	})

	assert.False(t, res.IsTest)
	assert.Equal(t, ConfidenceMedium, res.Confidence)
}

func TestEvaluate_TwoCorroboratingSignalsAreMedium(t *testing.T) {
	detector := NewDetector(Config{Environment: "staging"})

	// non-production environment + round amount
	res := detector.Evaluate(Input{
		Payment:    paymentWith("10", ""),
		BuyerEmail: "parent@example.com",
	})

	assert.True(t, res.IsTest)
	assert.Equal(t, ConfidenceMedium, res.Confidence)
	assert.Len(t, res.Signals, 2)
}

func TestEvaluate_ReferenceMarkerIsMedium(t *testing.T) {
	p := paymentWith("73.50", "")
	p.Reference = "TEST-BK-17"

	res := productionDetector().Evaluate(Input{Payment: p, BuyerEmail: "parent@example.com"})

	assert.False(t, res.IsTest)
	assert.Equal(t, ConfidenceMedium, res.Confidence)
	require.Len(t, res.Signals, 1)
	assert.Equal(t, "reference_marker", res.Signals[0].Tag)
}

func TestConfidenceOrdering(t *testing.T) {
	assert.True(t, ConfidenceNone < ConfidenceWeak)
	assert.True(t, ConfidenceWeak < ConfidenceMedium)
	assert.True(t, ConfidenceMedium < ConfidenceHigh)
	assert.Equal(t, "high", ConfidenceHigh.String())
}
