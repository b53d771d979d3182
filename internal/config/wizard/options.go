package wizard

import (
	"sort"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/datacenter/wiper/internal/config"
)

// controllerCountOptions are the cluster sizes the setup wizard
// accepts.
func controllerCountOptions() []huh.Option[int] {
	options := make([]huh.Option[int], 0, 9)
	for n := 1; n <= 9; n++ {
		label := strconv.Itoa(n)
		if n == 3 {
			label += " (recommended)"
		}
		options = append(options, huh.NewOption(label, n))
	}
	return options
}

// speedOptions lists the interface speed/duplex modes the controller
// accepts, derived from the validation catalogue so the two cannot
// drift apart.
func speedOptions() []huh.Option[string] {
	speeds := make([]string, 0, len(config.ValidInterfaceSpeeds))
	for speed := range config.ValidInterfaceSpeeds {
		speeds = append(speeds, speed)
	}
	sort.Strings(speeds)

	options := make([]huh.Option[string], 0, len(speeds))
	for _, speed := range speeds {
		label := speed
		if speed == "auto" {
			label += " (recommended)"
		}
		options = append(options, huh.NewOption(label, speed))
	}
	return options
}

// strongPasswordOptions mirror the Y/n answer the wizard expects.
var strongPasswordOptions = []huh.Option[string]{
	huh.NewOption("Yes", "Y"),
	huh.NewOption("No", "n"),
}

// completionOptions select the milestone that ends a run.
var completionOptions = []huh.Option[string]{
	huh.NewOption("Wait for the login banner (safer)", string(config.CompletionLoginBanner)),
	huh.NewOption("Stop after the final acknowledgement (faster)", string(config.CompletionFinalAck)),
}
