package game

// shuffle permutes items in place (Fisher-Yates).
func (o *Operations) shuffle(items []string) {
	for i := len(items) - 1; i > 0; i-- {
		j := o.rand.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// distribute deals items round-robin across users after a shuffle,
// producing the per-player starting distribution.
func (o *Operations) distribute(users []string, items []string) map[string][]string {
	shuffled := make([]string, len(items))
	copy(shuffled, items)
	o.shuffle(shuffled)

	result := make(map[string][]string, len(users))
	for _, user := range users {
		result[user] = []string{}
	}

	turn := 0
	for _, item := range shuffled {
		turn = (turn + 1) % len(users)
		user := users[turn]
		result[user] = append(result[user], item)
	}
	return result
}

// removeAt removes the card at index, preserving order.
func removeAt(cards []int, index int) []int {
	result := make([]int, 0, len(cards)-1)
	result = append(result, cards[:index]...)
	result = append(result, cards[index+1:]...)
	return result
}
