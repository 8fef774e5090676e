package playback

const (
	baseScore  = 900000
	comboScore = 100000
)

// Score is the two-term score for removed of total notes: a linear base term
// plus a combo term quadratic in removed. Full completion scores 1,000,000.
func Score(removed, total int) float64 {
	if total <= 0 || removed <= 0 {
		return 0
	}
	base := baseScore / float64(total) * float64(removed)
	if total == 1 {
		return base + comboScore*float64(removed)
	}
	combo := comboScore / float64((total-1)*total) * float64(removed*(removed-1))
	return base + combo
}

// TP is the percentage of notes removed.
func TP(removed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(removed) / float64(total)
}
