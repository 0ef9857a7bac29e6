package pip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequirement(t *testing.T) {
	assert.Equal(t, "paramiko", requirement("paramiko", ""))
	assert.Equal(t, "paramiko==1.15.2", requirement("paramiko", "1.15.2"))
}

func TestInstallArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"pip", "install", "paramiko==1.15.2"},
		installArgs("paramiko", "1.15.2"))
}
