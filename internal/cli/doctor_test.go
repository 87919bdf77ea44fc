package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rileyhilliard/drbdmon/internal/doctor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCheck struct {
	name     string
	category string
	result   doctor.CheckResult
	fixed    bool
}

func (s *stubCheck) Name() string     { return s.name }
func (s *stubCheck) Category() string { return s.category }

func (s *stubCheck) Run(context.Context) doctor.CheckResult {
	r := s.result
	r.Name = s.name
	if s.fixed {
		r.Status = doctor.StatusPass
	}
	return r
}

func (s *stubCheck) Fix() error {
	s.fixed = true
	return nil
}

func doctorChecks() []doctor.Check {
	return []doctor.Check{
		&stubCheck{name: "events_stream", category: doctor.CategoryEvents, result: doctor.CheckResult{
			Status: doctor.StatusPass, Message: "Status stream works (3 lines of initial state)"}},
		&stubCheck{name: "config_file", category: doctor.CategoryConfig, result: doctor.CheckResult{
			Status: doctor.StatusWarn, Message: "No config file, using defaults",
			Suggestion: "Create one with: drbdmon config init", Fixable: true}},
		&stubCheck{name: "tool_drbdadm", category: doctor.CategoryTools, result: doctor.CheckResult{
			Status: doctor.StatusFail, Message: "drbdadm: /usr/sbin/drbdadm not found"}},
	}
}

func TestDoctorText(t *testing.T) {
	var out bytes.Buffer
	err := runDoctor(context.Background(), doctorChecks(), doctorOptions{}, &out)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)

	text := out.String()
	assert.Contains(t, text, "drbdmon diagnostic report")
	assert.Contains(t, text, "No config file, using defaults")
	assert.Contains(t, text, "    Create one with: drbdmon config init")
	assert.Contains(t, text, "2 issues found")
	assert.Contains(t, text, "--fix")

	// Categories come out in report order, not check order.
	assert.Less(t, bytes.Index(out.Bytes(), []byte("CONFIG")), bytes.Index(out.Bytes(), []byte("TOOLS")))
	assert.Less(t, bytes.Index(out.Bytes(), []byte("TOOLS")), bytes.Index(out.Bytes(), []byte("EVENTS")))
}

func TestDoctorFix(t *testing.T) {
	checks := doctorChecks()[:2]
	var out bytes.Buffer
	err := runDoctor(context.Background(), checks, doctorOptions{Fix: true}, &out)
	require.NoError(t, err)
	assert.True(t, checks[1].(*stubCheck).fixed)
	assert.Contains(t, out.String(), "Everything looks good")
}

func TestDoctorJSON(t *testing.T) {
	var out bytes.Buffer
	err := runDoctor(context.Background(), doctorChecks(), doctorOptions{JSON: true}, &out)
	require.Error(t, err)

	var report DoctorOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.Len(t, report.Categories, 3)
	assert.Equal(t, "CONFIG", report.Categories[0].Name)
	assert.Equal(t, "config_file", report.Categories[0].Results[0].Name)
	assert.Equal(t, SummaryOutput{Pass: 1, Warn: 1, Fail: 1, Fixable: 1}, report.Summary)
	assert.Contains(t, out.String(), `"status": "warn"`)
}
