package diag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWarning(t *testing.T) {
	w := NewWarning(CodeDanglingSymlink, "foo.service", "target does not exist")
	assert.Equal(t, "DanglingSymlink: target does not exist (foo.service)", w.Error())

	w2 := NewWarning(CodeGeneratorSkipped, "", "generator paths are not enumerated")
	assert.Equal(t, "GeneratorSkipped: generator paths are not enumerated", w2.Error())
}

func TestRootInaccessibleError(t *testing.T) {
	cause := errors.New("permission denied")
	err := &RootInaccessibleError{Root: "/fx", Cause: cause}
	assert.True(t, IsRootInaccessible(err))
	assert.False(t, IsRootInaccessible(cause))
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestRootNotFoundError(t *testing.T) {
	err := &RootNotFoundError{Unit: "default.target"}
	assert.True(t, IsRootNotFound(err))
	assert.Contains(t, err.Error(), "default.target")
}

func TestOutputCollisionError(t *testing.T) {
	err := &OutputCollisionError{Path: "snap_ms.json"}
	assert.True(t, IsOutputCollision(err))
	assert.Contains(t, err.Error(), "snap_ms.json")
}
