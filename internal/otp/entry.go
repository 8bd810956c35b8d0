package otp

// CodeLength is the number of digits in a WhatsApp OTP.
const CodeLength = 4

// CodeEntry models the four single-digit input slots and which one has focus.
type CodeEntry struct {
	slots [CodeLength]byte
	focus int
}

// Input writes a digit into the focused slot and advances focus.
// Non-digits are ignored. It reports whether all slots are now filled.
func (e *CodeEntry) Input(r rune) bool {
	if r < '0' || r > '9' {
		return e.Complete()
	}
	e.slots[e.focus] = byte(r)
	if e.focus < CodeLength-1 {
		e.focus++
	}
	return e.Complete()
}

// Backspace clears the focused slot, or when it is already empty moves
// focus back one slot and clears that one.
func (e *CodeEntry) Backspace() {
	if e.slots[e.focus] != 0 {
		e.slots[e.focus] = 0
		return
	}
	if e.focus > 0 {
		e.focus--
		e.slots[e.focus] = 0
	}
}

// Paste distributes the digits of s starting at the focused slot, dropping
// anything past the last slot. It reports whether all slots are now filled.
func (e *CodeEntry) Paste(s string) bool {
	idx := e.focus
	for i := 0; i < len(s) && idx < CodeLength; i++ {
		if s[i] < '0' || s[i] > '9' {
			continue
		}
		e.slots[idx] = s[i]
		idx++
	}
	if idx > CodeLength-1 {
		idx = CodeLength - 1
	}
	e.focus = idx
	return e.Complete()
}

// SetFocus moves focus to slot i, clamped to the valid range.
func (e *CodeEntry) SetFocus(i int) {
	switch {
	case i < 0:
		e.focus = 0
	case i >= CodeLength:
		e.focus = CodeLength - 1
	default:
		e.focus = i
	}
}

// Focus returns the focused slot index.
func (e CodeEntry) Focus() int {
	return e.focus
}

// Slots returns the slot contents, "" for empty slots.
func (e CodeEntry) Slots() [CodeLength]string {
	var out [CodeLength]string
	for i, b := range e.slots {
		if b != 0 {
			out[i] = string(rune(b))
		}
	}
	return out
}

// Complete reports whether every slot holds a digit.
func (e CodeEntry) Complete() bool {
	for _, b := range e.slots {
		if b == 0 {
			return false
		}
	}
	return true
}

// Code returns the entered digits in slot order, skipping empty slots.
func (e CodeEntry) Code() string {
	buf := make([]byte, 0, CodeLength)
	for _, b := range e.slots {
		if b != 0 {
			buf = append(buf, b)
		}
	}
	return string(buf)
}

// Clear empties every slot and focuses the first one.
func (e *CodeEntry) Clear() {
	e.slots = [CodeLength]byte{}
	e.focus = 0
}
