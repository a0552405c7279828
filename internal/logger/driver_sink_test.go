package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/orgoj/mongolog/record"
	"github.com/stretchr/testify/assert"
)

func TestDriverSink_Info(t *testing.T) {
	var buf bytes.Buffer
	sink := NewDriverSink(NewAppLogger(&buf, record.INFO))

	sink.Info(1, "Connection pool created", "serverHost", "localhost", "serverPort", 27017)
	sink.Info(2, "Command started", "commandName", "insert")

	out := buf.String()
	assert.Contains(t, out, "INFO: mongo driver: Connection pool created serverHost=localhost serverPort=27017")
	assert.NotContains(t, out, "Command started", "verbose driver messages are DEBUG")
}

func TestDriverSink_Debug(t *testing.T) {
	var buf bytes.Buffer
	sink := NewDriverSink(NewAppLogger(&buf, record.DEBUG))

	sink.Info(2, "Command started", "commandName")

	assert.Contains(t, buf.String(), "DEBUG: mongo driver: Command started commandName=<missing>")
}

func TestDriverSink_Error(t *testing.T) {
	var buf bytes.Buffer
	sink := NewDriverSink(NewAppLogger(&buf, record.WARN))

	sink.Error(errors.New("server selection timeout"), "Server selection failed", "selector", "primary")

	assert.Contains(t, buf.String(), "ERROR: mongo driver: Server selection failed: server selection timeout selector=primary")
}
