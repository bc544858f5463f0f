package app

import (
	"github.com/vk/gofsrs/internal/registry"
	"github.com/vk/gofsrs/modules/acquire"
	"github.com/vk/gofsrs/modules/daqmonitor"
	"github.com/vk/gofsrs/modules/daqscan"
	"github.com/vk/gofsrs/modules/daqstats"
	"github.com/vk/gofsrs/modules/focus"
	"github.com/vk/gofsrs/modules/fsrsscan"
	"github.com/vk/gofsrs/modules/gridoptimize"
	"github.com/vk/gofsrs/modules/mockaxis"
	"github.com/vk/gofsrs/modules/mockcamera"
	"github.com/vk/gofsrs/modules/mockdaq"
	"github.com/vk/gofsrs/modules/mockshutter"
	"github.com/vk/gofsrs/modules/sr830"
	"github.com/vk/gofsrs/modules/xcscan"
)

// coreModules is the definitive list of all modules that are compiled into
// the gofsrs binary.
var coreModules = []registry.Module{
	// device drivers
	&mockcamera.Module{},
	&mockaxis.Module{},
	&mockdaq.Module{},
	&mockshutter.Module{},
	&sr830.Module{},

	// experiments
	&acquire.Module{},
	&focus.Module{},
	&fsrsscan.Module{},
	&xcscan.Module{},
	&daqscan.Module{},
	&daqstats.Module{},
	&daqmonitor.Module{},
	&gridoptimize.Module{},
}
