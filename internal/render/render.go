package render

// Options toggles the two independent read-time transforms.
type Options struct {
	StripANSI  bool
	PrettyJSON bool
}

// Line applies cursor-movement collapsing unconditionally, then the two
// user-toggleable transforms in order: ANSI stripping, then JSON pretty
// printing. Order matters — pretty-printing a line that still carries SGR
// codes would fail gjson.Valid, so JSON detection naturally happens on
// whichever text stripping has already produced.
func Line(raw []byte, opts Options) string {
	s := CollapseCursorMovement(string(raw))
	if opts.StripANSI {
		s = StripANSI(s)
	}
	if opts.PrettyJSON {
		if opts.StripANSI {
			s = PrettyJSONPlain(s)
		} else {
			s = PrettyJSON(s)
		}
	}
	return s
}
