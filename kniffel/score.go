package kniffel

// ScoreFor computes what a category would score with the given dice.
// Upper categories count the face; n-of-a-kind scores the full sum;
// fixed combinations pay their fixed amounts.
func ScoreFor(dice []int, category Category) int {
	counts := map[int]int{}
	sum := 0
	for _, d := range dice {
		counts[d]++
		sum += d
	}
	most, second := 0, 0
	for _, n := range counts {
		if n > most {
			most, second = n, most
		} else if n > second {
			second = n
		}
	}

	switch category {
	case Ones:
		return counts[1] * 1
	case Twos:
		return counts[2] * 2
	case Threes:
		return counts[3] * 3
	case Fours:
		return counts[4] * 4
	case Fives:
		return counts[5] * 5
	case Sixes:
		return counts[6] * 6
	case ThreeOfAKind:
		if most >= 3 {
			return sum
		}
		return 0
	case FourOfAKind:
		if most >= 4 {
			return sum
		}
		return 0
	case FullHouse:
		if most == 3 && second == 2 {
			return 25
		}
		return 0
	case SmallStraight:
		for _, straight := range [][]int{{1, 2, 3, 4}, {2, 3, 4, 5}, {3, 4, 5, 6}} {
			if containsAll(counts, straight) {
				return 30
			}
		}
		return 0
	case LargeStraight:
		if containsAll(counts, []int{1, 2, 3, 4, 5}) || containsAll(counts, []int{2, 3, 4, 5, 6}) {
			return 40
		}
		return 0
	case KniffelCat:
		if most == 5 {
			return 50
		}
		return 0
	case Chance:
		return sum
	}
	return 0
}

func containsAll(counts map[int]int, faces []int) bool {
	for _, f := range faces {
		if counts[f] == 0 {
			return false
		}
	}
	return true
}

// UpperSum is the total of the six face categories.
func UpperSum(sheet Sheet) int {
	sum := 0
	for _, c := range UpperCategories {
		if v := sheet[c]; v != nil {
			sum += *v
		}
	}
	return sum
}

// LowerSum is the total of the combination categories.
func LowerSum(sheet Sheet) int {
	sum := 0
	for _, c := range LowerCategories {
		if v := sheet[c]; v != nil {
			sum += *v
		}
	}
	return sum
}

// Bonus pays 35 once the upper sum reaches 63.
func Bonus(upperSum int) int {
	if upperSum >= 63 {
		return 35
	}
	return 0
}

// GrandTotal is upper sum + bonus + lower sum.
func GrandTotal(sheet Sheet) int {
	upper := UpperSum(sheet)
	return upper + Bonus(upper) + LowerSum(sheet)
}

// GrandTotals gives every player's total; with GameOver and a nil
// Winner, the tied set is everyone sharing the maximum here.
func GrandTotals(s State) map[string]int {
	out := make(map[string]int, len(s.Scores))
	for id, sheet := range s.Scores {
		out[id] = GrandTotal(sheet)
	}
	return out
}
