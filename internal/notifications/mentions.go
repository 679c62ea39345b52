package notifications

// ExtractMentions pulls @username tokens out of a body. Each username is
// returned once, in order of first appearance.
func ExtractMentions(body string) []string {
	var mentions []string
	seen := make(map[string]bool)

	for i := 0; i < len(body); i++ {
		if body[i] != '@' {
			continue
		}
		// A '@' glued to preceding word text is an email-style address,
		// not a mention
		if i > 0 && isUsernameChar(body[i-1]) {
			continue
		}
		j := i + 1
		for j < len(body) && isUsernameChar(body[j]) {
			j++
		}
		if j > i+1 {
			username := body[i+1 : j]
			if !seen[username] {
				seen[username] = true
				mentions = append(mentions, username)
			}
		}
		i = j - 1
	}

	return mentions
}

func isUsernameChar(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '_' || c == '-'
}
