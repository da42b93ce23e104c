package intake

// Completion returns the share of answered questions across the whole
// catalog as a 0-100 percentage, rounded half up. Required and optional
// questions count the same.
func Completion(c *Catalog, answers Answers) int {
	total := len(c.flat)
	if total == 0 {
		return 0
	}

	answered := 0
	for _, q := range c.flat {
		if answers.Answered(q.ID) {
			answered++
		}
	}

	return (200*answered + total) / (2 * total)
}
