package bytesutil

// crlf is the mime line terminator appended by [Cursor.CopyTextCRLF].
const crlf = "\r\n"

// Cursor tracks the progress of copying text into a sequence of
// fixed-size destination buffers. The same text may span several
// buffers: each call copies as much as fits and the cursor remembers
// how far into the text it got, so the next call resumes mid-text.
//
// Two counters are kept: progress through the current text (survives
// across buffers) and bytes written into the current buffer (shared by
// every copy into that buffer, including external writes recorded via
// [Cursor.Advance]).
type Cursor struct {
	text    int
	written int
}

// NextBuffer begins a fresh destination buffer.
func (c *Cursor) NextBuffer() { c.written = 0 }

// Rewind begins a fresh text, keeping the current buffer position.
func (c *Cursor) Rewind() { c.text = 0 }

// Written returns how many bytes were written into the current buffer.
func (c *Cursor) Written() int { return c.written }

// Remaining returns the unwritten tail of buf.
func (c *Cursor) Remaining(buf []byte) []byte { return buf[c.written:] }

// Advance records n bytes produced into the current buffer by an
// external writer.
func (c *Cursor) Advance(n int) { c.written += n }

// CopyText copies as much of the untransmitted portion of text into buf
// as fits, reporting whether the whole text has now been emitted. A
// false return means buf filled up first; call again with a fresh
// buffer to continue the same text.
func (c *Cursor) CopyText(buf []byte, text string) bool {
	n := copy(buf[c.written:], text[c.text:])
	c.written += n
	c.text += n
	return c.text == len(text)
}

// CopyTextCRLF is [Cursor.CopyText] with a CRLF terminator counted as
// part of the text.
func (c *Cursor) CopyTextCRLF(buf []byte, text string) bool {
	if c.text < len(text) && !c.CopyText(buf, text) {
		return false
	}

	n := copy(buf[c.written:], crlf[c.text-len(text):])
	c.written += n
	c.text += n
	return c.text == len(text)+len(crlf)
}
