package config

import (
	"os"
	"strings"
)

// Settings collects the env-driven knobs of the reconciliation engine.
// TEST_ACCOUNT_EMAILS is a comma-separated allow-list of known test buyers;
// whether it stays long-term or only covers integration accounts is an ops
// decision, which is why it lives in the environment and not in code.
type Settings struct {
	GatewayBaseURL string
	Environment    string
	TestAccounts   []string
}

func LoadSettings() Settings {
	return Settings{
		GatewayBaseURL: getenv("GATEWAY_BASE_URL", "https://api.payrexx.com/v1.0"),
		Environment:    getenv("APP_ENV", "production"),
		TestAccounts:   splitList(os.Getenv("TEST_ACCOUNT_EMAILS")),
	}
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
