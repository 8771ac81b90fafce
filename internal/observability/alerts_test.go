package observability

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type ruleFile struct {
	Groups []alertGroup `yaml:"groups"`
}

// knownMetrics lists the series the alert rules may reference.
var knownMetrics = map[string]bool{
	"lumen_http_requests_total":        true,
	"lumen_store_operations_total":     true,
	"lumen_jobs_failures_total":        true,
	"lumen_jobs_total":                 true,
	"lumen_content_rows":               true,
	"lumen_attachments_migrated_total": true,
}

var metricName = regexp.MustCompile(`lumen_[a-z_]+`)

func TestAlertRules(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "lumen.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}
	if len(file.Groups) != 1 || file.Groups[0].Name != "lumen" {
		t.Fatalf("expected a single lumen group, got %+v", file.Groups)
	}

	expected := map[string]string{
		"HighErrorRate":              "critical",
		"StoreBackendFailing":        "warning",
		"AttachmentMigrationFailing": "warning",
	}
	rules := file.Groups[0].Rules
	if len(rules) != len(expected) {
		t.Fatalf("expected %d rules, got %d", len(expected), len(rules))
	}
	for _, rule := range rules {
		severity, ok := expected[rule.Alert]
		if !ok {
			t.Fatalf("unexpected rule %q", rule.Alert)
		}
		if rule.Labels["severity"] != severity {
			t.Fatalf("rule %s severity mismatch: %s", rule.Alert, rule.Labels["severity"])
		}
		if rule.Annotations["summary"] == "" || rule.Annotations["description"] == "" || rule.Annotations["runbook"] == "" {
			t.Fatalf("rule %s must include summary, description and runbook annotations", rule.Alert)
		}
		if rule.For == "" {
			t.Fatalf("rule %s must define a hold duration", rule.Alert)
		}
		names := metricName.FindAllString(rule.Expr, -1)
		if len(names) == 0 {
			t.Fatalf("rule %s references no lumen metric", rule.Alert)
		}
		for _, name := range names {
			if !knownMetrics[name] {
				t.Fatalf("rule %s references unknown metric %s", rule.Alert, name)
			}
		}
	}
}
