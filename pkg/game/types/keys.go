package types

// Document keys in the shared store. Every key addresses one
// independently-transacted document.

func GameKey(gameID string) string {
	return "games/" + gameID
}

func BoardKey(gameID string) string {
	return "boards/" + gameID
}

func HandKey(gameID, userID string) string {
	return "hands/" + gameID + "/" + userID
}

func EventsKey(gameID string) string {
	return "events/" + gameID
}

func UserKey(userID string) string {
	return "users/" + userID
}

func PresenceKey(gameID, userID string) string {
	return "presence/" + gameID + "/" + userID
}
