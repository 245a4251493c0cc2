package domain

// Participant is one named slot occupant in a conversation.
type Participant struct {
	ID        string
	Name      string
	AvatarURL string
}

// OrderPair returns the pair in canonical order, lower id first. Storing
// pairs canonically makes repeated creation requests for the same unordered
// pair resolve to a single conversation.
func OrderPair(first, second Participant) (Participant, Participant) {
	if first.ID > second.ID {
		return second, first
	}
	return first, second
}
