package layout

// pair is one source character and what the same physical key types in
// the target layout.
type pair struct {
	source rune
	target rune
}

// englishHebrew maps US QWERTY to the standard Hebrew layout. Order
// matters: when several sources share a target, the backward map keeps
// the first one listed, so every lowercase letter precedes its capital.
var englishHebrew = []pair{
	{'q', '/'}, {'Q', '/'},
	{'w', '\''}, {'W', '\''},
	{'e', 'ק'}, {'E', 'ק'},
	{'r', 'ר'}, {'R', 'ר'},
	{'t', 'א'}, {'T', 'א'},
	{'y', 'ט'}, {'Y', 'ט'},
	{'u', 'ו'}, {'U', 'ו'},
	{'i', 'ן'}, {'I', 'ן'},
	{'o', 'ם'}, {'O', 'ם'},
	{'p', 'פ'}, {'P', 'פ'},
	{'a', 'ש'}, {'A', 'ש'},
	{'s', 'ד'}, {'S', 'ד'},
	{'d', 'ג'}, {'D', 'ג'},
	{'f', 'כ'}, {'F', 'כ'},
	{'g', 'ע'}, {'G', 'ע'},
	{'h', 'י'}, {'H', 'י'},
	{'j', 'ח'}, {'J', 'ח'},
	{'k', 'ל'}, {'K', 'ל'},
	{'l', 'ך'}, {'L', 'ך'},
	{'z', 'ז'}, {'Z', 'ז'},
	{'x', 'ס'}, {'X', 'ס'},
	{'c', 'ב'}, {'C', 'ב'},
	{'v', 'ה'}, {'V', 'ה'},
	{'b', 'נ'}, {'B', 'נ'},
	{'n', 'מ'}, {'N', 'מ'},
	{'m', 'ץ'}, {'M', 'ץ'},

	{',', 'ת'},
	{'.', 'ץ'},
	{'/', '.'},
	{';', 'ף'},
	{'\'', ','},
	{'[', ']'},
	{']', '['},
	{'-', '-'},
	{'=', '='},
}
