package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

int
espeak_say(const char *text, const char *lang)
{
	if (!text || !lang)
	{ return -1; }

	espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0);
	espeak_VOICE specs = { .languages = lang };
	espeak_SetVoiceByProperties(&specs);

	espeak_Synth(text, 4096, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Speak reads text aloud and blocks until playback ends.
func Speak(text, lang string) error {
	if text == "" {
		return nil
	}
	if lang == "" {
		lang = "en"
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	clang := C.CString(lang)
	defer C.free(unsafe.Pointer(clang))

	if rc := C.espeak_say(ctext, clang); rc != 0 {
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}

	return nil
}
