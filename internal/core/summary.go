package core

// CategoryTotal is one (category, subcategory) group in a summary.
type CategoryTotal struct {
	Category    string
	Subcategory string
	Count       int64
	Total       Money
}

// Summary holds grouped totals plus the grand total across all groups.
// Groups are ordered by total descending, then category ascending, then
// subcategory ascending; groups with no matching expenses are omitted.
type Summary struct {
	Groups     []CategoryTotal
	GrandTotal Money
}

// MonthlyBucket is the sum and count for one calendar month, YYYY-MM.
type MonthlyBucket struct {
	Month string
	Count int64
	Total Money
}

// Statistics describes a filtered expense set as a whole. Mean is
// half-up rounded cents and zero when Count is zero. Monthly buckets
// are chronological; months with no expenses are omitted. MostRecent
// is the latest expense by date then id, nil for an empty set.
type Statistics struct {
	Count      int64
	Total      Money
	Mean       Money
	Min        Money
	Max        Money
	Monthly    []MonthlyBucket
	MostRecent *Expense
}

// MeanCents computes the half-up rounded mean of total over count,
// returning 0 for an empty set.
func MeanCents(totalCents, count int64) int64 {
	if count == 0 {
		return 0
	}
	neg := totalCents < 0
	if neg {
		totalCents = -totalCents
	}
	mean := (totalCents + count/2) / count
	if neg {
		return -mean
	}
	return mean
}
