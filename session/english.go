package session

// englishUnits are the units of EnglishProfile ordered by how often they
// appear in English text, with their approximate relative frequencies.
var englishUnits = []struct {
	unit rune
	freq float64
}{
	{' ', 1300}, {'e', 1270}, {'t', 906}, {'a', 817}, {'o', 751},
	{'i', 697}, {'n', 675}, {'s', 633}, {'h', 609}, {'r', 599},
	{'d', 425}, {'l', 403}, {'c', 278}, {'u', 276}, {'m', 241},
	{'w', 236}, {'f', 223}, {'g', 202}, {'y', 197}, {'p', 193},
	{'b', 149}, {'v', 98}, {'k', 77}, {'j', 15}, {'x', 15},
	{'q', 10}, {'z', 7},

	{'E', 50}, {'T', 50}, {'A', 45}, {'O', 40}, {'I', 40},
	{'N', 35}, {'S', 35}, {'H', 30}, {'R', 30}, {'D', 25},
	{'L', 25}, {'C', 20}, {'U', 20}, {'M', 15}, {'W', 15},
	{'F', 15}, {'G', 15}, {'Y', 10}, {'P', 10}, {'B', 10},
	{'V', 8}, {'K', 5}, {'J', 5}, {'X', 3}, {'Q', 2}, {'Z', 2},

	{'.', 100}, {',', 80}, {'!', 20}, {'?', 15}, {';', 10},
	{':', 8}, {'-', 50}, {'\'', 30}, {'"', 40}, {'(', 15},
	{')', 15}, {'[', 10}, {']', 10}, {'{', 5}, {'}', 5},
	{'\n', 80}, {'\t', 20}, {'\r', 5},

	{'0', 50}, {'1', 50}, {'2', 50}, {'3', 50}, {'4', 50},
	{'5', 50}, {'6', 50}, {'7', 50}, {'8', 50}, {'9', 50},

	{'@', 20}, {'#', 5}, {'$', 5}, {'%', 5}, {'&', 10},
	{'*', 5}, {'+', 10}, {'=', 10}, {'/', 15}, {'\\', 15},
	{'_', 30}, {'|', 5}, {'<', 8}, {'>', 8}, {'~', 3}, {'`', 3},
}

// englishEOF is the relative frequency of the end-of-stream symbol.
const englishEOF = 1

// EnglishProfile returns a text profile for English prose: printable ASCII
// letters, digits, punctuation and whitespace, starting from typical English
// character statistics and adapting to the text as it is coded.
func EnglishProfile() *Profile {
	var total float64 = englishEOF
	for _, u := range englishUnits {
		total += u.freq
	}

	units := make([]rune, 0, len(englishUnits))
	pmf := make([]float64, 0, len(englishUnits)+1)
	for _, u := range englishUnits {
		units = append(units, u.unit)
		pmf = append(pmf, u.freq/total)
	}
	pmf = append(pmf, englishEOF/total)

	return &Profile{
		Symbols:   len(pmf),
		EOF:       len(pmf) - 1,
		Precision: DefaultPrecision,
		Units:     string(units),
		Initial:   pmf,
		Policy: PolicyConfig{
			Kind:   PolicyIncrement,
			Amount: 32,
		},
	}
}
