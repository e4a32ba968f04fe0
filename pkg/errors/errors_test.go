package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/agentstation/confmap/pkg/errors"
)

func TestConfigError(t *testing.T) {
	t.Run("with option", func(t *testing.T) {
		err := pkgerrors.NewConfigError("similarity_threshold", "must be in [0,1], got 1.5", nil)
		assert.Equal(t, "configuration error for similarity_threshold: must be in [0,1], got 1.5", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrInvalidConfig))
		assert.True(t, pkgerrors.IsInvalidConfig(err))
	})

	t.Run("without option", func(t *testing.T) {
		err := &pkgerrors.ConfigError{Message: "no store configured"}
		assert.Equal(t, "configuration error: no store configured", err.Error())
	})

	t.Run("unwraps cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := pkgerrors.NewConfigError("store", "cannot open", cause)
		assert.True(t, errors.Is(err, cause))
	})
}

func TestMalformedRecordError(t *testing.T) {
	err := pkgerrors.NewMalformedRecordError("community-wiki", "Mystery Conf", "unparsable key date")
	assert.Equal(t, `malformed record "Mystery Conf" from community-wiki: unparsable key date`, err.Error())
	assert.True(t, pkgerrors.IsMalformedRecord(err))

	t.Run("nameless record", func(t *testing.T) {
		err := pkgerrors.NewMalformedRecordError("community-wiki", "", "missing name")
		assert.Equal(t, "malformed record from community-wiki: missing name", err.Error())
	})
}

func TestNotFoundError(t *testing.T) {
	err := pkgerrors.NewNotFoundError("backup", "20260801T000000Z")
	assert.Equal(t, "backup 20260801T000000Z not found", err.Error())
	assert.True(t, pkgerrors.IsNotFound(err))

	t.Run("wrapped", func(t *testing.T) {
		wrapped := errors.Join(errors.New("restore failed"), err)
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestIOError(t *testing.T) {
	cause := errors.New("permission denied")
	err := pkgerrors.NewIOError("write", "/data/entities.yaml", cause)
	assert.Contains(t, err.Error(), "write")
	assert.Contains(t, err.Error(), "/data/entities.yaml")
	assert.True(t, errors.Is(err, cause))
}

func TestWrapHelpers(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, pkgerrors.WrapIO("read", "x", nil))
		assert.NoError(t, pkgerrors.WrapParse("yaml", "x", nil))
	})

	t.Run("non-nil wraps", func(t *testing.T) {
		cause := errors.New("bad indent")
		err := pkgerrors.WrapParse("yaml", "entities.yaml", cause)
		assert.True(t, errors.Is(err, cause))
		assert.Contains(t, err.Error(), "entities.yaml")
	})
}
