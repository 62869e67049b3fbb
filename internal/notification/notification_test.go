package notification

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"coursekit/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendFallsBackToLog(t *testing.T) {
	var buf bytes.Buffer
	opts := logging.DefaultOptions()
	opts.Out = &buf
	opts.Location = time.UTC
	opts.Layout = logging.LayoutBare
	l, err := logging.Setup(opts)
	require.NoError(t, err)

	orig := alert
	defer func() { alert = orig }()
	var gotTitle string
	alert = func(title, message string, icon any) error {
		gotTitle = title
		return errors.New("no dbus")
	}

	err = Send(l.Logger("tags"), "Tags done", "3 found")
	assert.Error(t, err)
	assert.Equal(t, "coursekit: Tags done", gotTitle)
	assert.Contains(t, buf.String(), "WARN | 🔔 Tags done: 3 found")
}
