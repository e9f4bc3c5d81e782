package studio

// BuildContext lays out the grounding context for follow-up answers. The
// section labels and their order are part of the answer prompt contract.
func BuildContext(topic, outline, summary string) string {
	return "TOPIC:\n" + topic +
		"\n\nOUTLINE:\n" + outline +
		"\n\nSUMMARY:\n" + summary + "\n"
}
