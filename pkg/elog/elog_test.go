package elog

import(
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := &StdLogger{Level: LogInfo, Logger: log.New(&buf, "", 0)}

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.Errorf("failed %s", "IMG_0001_1.tif")

	assert.Equal(t, "INFO: shown 2\nERROR: failed IMG_0001_1.tif\n", buf.String())
}

func TestOrNull(t *testing.T) {
	assert.Equal(t, NullLogger{}, OrNull(nil))

	l := New(1)
	assert.Equal(t, LogDebug, l.Level)
	assert.Same(t, l, OrNull(l))
}
