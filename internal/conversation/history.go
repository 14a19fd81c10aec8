package conversation

import "mentor-chat/internal/models"

// BoundHistory selects the turns sent as model context. next is always
// included and charged first, even when it alone exceeds budget. Prior turns
// are taken newest-first while they fit; the scan stops at the first one that
// does not. The result is oldest-first with next last.
func BoundHistory(prior []models.Message, next models.Message, budget int, est TokenEstimator) []models.Message {
	if est == nil {
		est = WordCounter{}
	}

	used := est.Count(next.Content)
	start := len(prior)
	for i := len(prior) - 1; i >= 0; i-- {
		size := est.Count(prior[i].Content)
		if used+size > budget {
			break
		}
		used += size
		start = i
	}

	out := make([]models.Message, 0, len(prior)-start+1)
	out = append(out, prior[start:]...)
	return append(out, next)
}
