package app

import (
	"github.com/vk/spacesd/internal/registry"
	"github.com/vk/spacesd/providers/envvars"
	"github.com/vk/spacesd/providers/fetch"
	"github.com/vk/spacesd/providers/gitrepo"
	"github.com/vk/spacesd/providers/pip"
	"github.com/vk/spacesd/providers/syspkg"
	"github.com/vk/spacesd/providers/venv"
)

// coreModules is the default provider set registered by every App unless a
// caller supplies its own (tests do).
var coreModules = []registry.Module{
	envvars.Module{},
	fetch.Module{},
	gitrepo.Module{},
	pip.Module{},
	syspkg.Module{},
	venv.Module{},
}
