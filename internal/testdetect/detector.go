package testdetect

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"booking-payments-backend/internal/models"
)

// Confidence orders how strongly a payment is believed to be sandbox traffic.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceWeak
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceWeak:
		return "weak"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	default:
		return "none"
	}
}

func (c Confidence) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

type Signal struct {
	Tag        string     `json:"tag"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason"`
}

type Result struct {
	IsTest     bool       `json:"is_test"`
	Confidence Confidence `json:"confidence"`
	Signals    []Signal   `json:"signals"`
}

type Config struct {
	// TestAccounts is the injected allow-list of known test buyers.
	TestAccounts []string
	// Environment is the deployment flag; anything but "production" is a
	// medium signal on its own.
	Environment string
	// SandboxMarkers are the tokens scanned for in provider names and
	// references. Defaults to test/sandbox/demo when empty.
	SandboxMarkers []string
	// TestCardPrefixes are the well-known scheme test-card BINs. Defaults
	// cover the usual Visa/Mastercard/Amex sandbox numbers when empty.
	TestCardPrefixes []string
}

var (
	defaultMarkers      = []string{"test", "sandbox", "demo"}
	defaultCardPrefixes = []string{"424242", "411111", "400000", "550000", "555555", "340000", "378282"}

	// Small round amounts people type when poking at a payment form. A
	// weak, informational signal: it must never flip the verdict alone,
	// or genuine small purchases would be misclassified.
	roundTestAmounts = []decimal.Decimal{
		decimal.NewFromInt(1),
		decimal.NewFromInt(5),
		decimal.NewFromInt(10),
		decimal.NewFromInt(100),
	}
)

type Detector struct {
	cfg          Config
	testAccounts map[string]bool
}

func NewDetector(cfg Config) *Detector {
	if len(cfg.SandboxMarkers) == 0 {
		cfg.SandboxMarkers = defaultMarkers
	}
	if len(cfg.TestCardPrefixes) == 0 {
		cfg.TestCardPrefixes = defaultCardPrefixes
	}
	accounts := make(map[string]bool, len(cfg.TestAccounts))
	for _, a := range cfg.TestAccounts {
		accounts[strings.ToLower(strings.TrimSpace(a))] = true
	}
	return &Detector{cfg: cfg, testAccounts: accounts}
}

// Input is one payment plus the buyer identifier of its owning booking.
type Input struct {
	Payment    *models.Payment
	BuyerEmail string
}

type indicator struct {
	tag        string
	confidence Confidence
	evaluate   func(d *Detector, in Input) (bool, string)
}

// indicators is the fixed, ordered signal list. Each entry is independently
// testable; the verdict comes from folding the matches through the
// confidence lattice in Evaluate.
var indicators = []indicator{
	{"sandbox_card", ConfidenceHigh, (*Detector).matchSandboxCard},
	{"sandbox_provider", ConfidenceHigh, (*Detector).matchSandboxProvider},
	{"test_account", ConfidenceHigh, (*Detector).matchTestAccount},
	{"reference_marker", ConfidenceMedium, (*Detector).matchReferenceMarker},
	{"non_production_env", ConfidenceMedium, (*Detector).matchEnvironment},
	{"round_amount", ConfidenceWeak, (*Detector).matchRoundAmount},
}

// Evaluate scores one payment. Lattice fold: any high signal decides the
// verdict; otherwise two or more medium/weak signals corroborate each other;
// a lone non-high signal is reported but never decisive.
func (d *Detector) Evaluate(in Input) Result {
	var signals []Signal
	for _, ind := range indicators {
		if hit, reason := ind.evaluate(d, in); hit {
			signals = append(signals, Signal{Tag: ind.tag, Confidence: ind.confidence, Reason: reason})
		}
	}

	res := Result{Signals: signals}
	switch {
	case len(signals) == 0:
		res.Confidence = ConfidenceNone
	case highest(signals) == ConfidenceHigh:
		res.IsTest = true
		res.Confidence = ConfidenceHigh
	case len(signals) >= 2:
		res.IsTest = true
		res.Confidence = ConfidenceMedium
	default:
		res.Confidence = signals[0].Confidence
	}
	return res
}

func highest(signals []Signal) Confidence {
	top := ConfidenceNone
	for _, s := range signals {
		if s.Confidence > top {
			top = s.Confidence
		}
	}
	return top
}

func (d *Detector) matchSandboxCard(in Input) (bool, string) {
	for _, key := range []string{"cardNumber", "card_number", "maskedCard", "pan"} {
		card := digitsOf(in.Payment.SnapshotField(key))
		if card == "" {
			continue
		}
		for _, prefix := range d.cfg.TestCardPrefixes {
			if strings.HasPrefix(card, prefix) {
				return true, fmt.Sprintf("card number starts with known test BIN %s", prefix)
			}
		}
	}
	return false, ""
}

func (d *Detector) matchSandboxProvider(in Input) (bool, string) {
	for _, key := range []string{"provider", "psp", "processor"} {
		provider := strings.ToLower(in.Payment.SnapshotField(key))
		if provider == "" {
			continue
		}
		for _, marker := range d.cfg.SandboxMarkers {
			if strings.Contains(provider, marker) {
				return true, fmt.Sprintf("provider %q contains marker %q", provider, marker)
			}
		}
	}
	return false, ""
}

func (d *Detector) matchTestAccount(in Input) (bool, string) {
	email := strings.ToLower(strings.TrimSpace(in.BuyerEmail))
	if email != "" && d.testAccounts[email] {
		return true, fmt.Sprintf("buyer %s is in the test-account allow-list", email)
	}
	return false, ""
}

func (d *Detector) matchReferenceMarker(in Input) (bool, string) {
	candidates := []string{
		in.Payment.Reference,
		in.Payment.SnapshotField("invoiceId"),
		in.Payment.SnapshotField("referenceId"),
	}
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if lc == "" {
			continue
		}
		for _, marker := range d.cfg.SandboxMarkers {
			if strings.Contains(lc, marker) {
				return true, fmt.Sprintf("reference %q contains marker %q", c, marker)
			}
		}
	}
	return false, ""
}

func (d *Detector) matchEnvironment(in Input) (bool, string) {
	env := strings.ToLower(strings.TrimSpace(d.cfg.Environment))
	if env != "" && env != "production" {
		return true, fmt.Sprintf("running in %s environment", env)
	}
	return false, ""
}

func (d *Detector) matchRoundAmount(in Input) (bool, string) {
	for _, amount := range roundTestAmounts {
		if in.Payment.Amount.Equal(amount) {
			return true, fmt.Sprintf("amount %s is a conventional test value", amount)
		}
	}
	return false, ""
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
