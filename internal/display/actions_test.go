package display

import (
	"testing"

	"github.com/rileyhilliard/drbdmon/internal/drbdcmd"
	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		resource string
		want     monitor.RunAction
		wantErr  bool
	}{
		{
			name:     "selected resource",
			line:     "start",
			resource: "r0",
			want:     monitor.RunAction{Action: "start", Target: drbdcmd.NewTarget("r0"), Activate: true},
		},
		{
			name:     "explicit target",
			line:     "  verify r1:nodeB/2 ",
			resource: "r0",
			want:     monitor.RunAction{Action: "verify", Target: drbdcmd.Target{Resource: "r1", Peer: "nodeB", Volume: 2}, Activate: true},
		},
		{
			name: "nothing selected means all",
			line: "adjust",
			want: monitor.RunAction{Action: "adjust", Target: drbdcmd.NewTarget(""), Activate: true},
		},
		{
			name:     "hold",
			line:     "detach --hold r0/0",
			resource: "r1",
			want:     monitor.RunAction{Action: "detach", Target: drbdcmd.Target{Resource: "r0", Volume: 0}},
		},
		{name: "empty", line: "   ", wantErr: true},
		{name: "unknown action", line: "explode r0", wantErr: true},
		{name: "bad target", line: "attach r0/x", wantErr: true},
		{name: "extra words", line: "start r0 r1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseActionLine(tt.line, tt.resource)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
