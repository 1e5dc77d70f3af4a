package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/homecoming/core/model"
)

// EncodeJobs writes jobs to w as "json" or "yaml".
func EncodeJobs(w io.Writer, jobs []model.TriggerJob, format string) error {
	if jobs == nil {
		jobs = []model.TriggerJob{}
	}
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(jobs); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
