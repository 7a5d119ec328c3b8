package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvironmentVariables(t *testing.T) {
	t.Setenv("RASTREOBUS_MONGODB_DATABASE", "rastreobus-test")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	env := GetEnvironmentVariables()

	assert.Equal(t, "rastreobus-test", env["RASTREOBUS_MONGODB_DATABASE"])

	_, present := env["UNRELATED_VARIABLE"]
	assert.False(t, present)
}
