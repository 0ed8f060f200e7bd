//go:build darwin

package primarykey

/*
#include <stdint.h>
*/
import "C"

//export hotkeydTapFlagsChanged
func hotkeydTapFlagsChanged(keycode C.int64_t, flags C.uint64_t) {
	deliverTap(Observation{
		Source:  SourceEventTap,
		KeyCode: tapKeyCode(int64(keycode)),
		Flags:   uint64(flags),
	})
}

//export hotkeydTapRearmed
func hotkeydTapRearmed() {
	deliverTap(Observation{
		Source:  SourceEventTap,
		KeyCode: 0,
		Rearmed: true,
	})
}
