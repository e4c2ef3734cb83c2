package book

// mainLines are the openings the built-in book knows.
var mainLines = []struct {
	name   string
	moves  string
	weight uint16
}{
	{"Ruy Lopez", "e2e4 e7e5 g1f3 b8c6 f1b5 a7a6 b5a4 g8f6 e1g1", 40},
	{"Giuoco Piano", "e2e4 e7e5 g1f3 b8c6 f1c4 f8c5 c2c3 g8f6 d2d3", 30},
	{"Petroff", "e2e4 e7e5 g1f3 g8f6 f3e5 d7d6 e5f3 f6e4", 10},
	{"Open Sicilian", "e2e4 c7c5 g1f3 d7d6 d2d4 c5d4 f3d4 g8f6 b1c3", 40},
	{"Sveshnikov", "e2e4 c7c5 g1f3 b8c6 d2d4 c5d4 f3d4 g8f6 b1c3 e7e5", 20},
	{"French", "e2e4 e7e6 d2d4 d7d5 b1c3 g8f6 c1g5 f8e7", 20},
	{"Caro-Kann", "e2e4 c7c6 d2d4 d7d5 b1c3 d5e4 c3e4 c8f5", 20},
	{"Queen's Gambit Declined", "d2d4 d7d5 c2c4 e7e6 b1c3 g8f6 c1g5 f8e7 e2e3", 40},
	{"Slav", "d2d4 d7d5 c2c4 c7c6 g1f3 g8f6 b1c3 d5c4", 20},
	{"Nimzo-Indian", "d2d4 g8f6 c2c4 e7e6 b1c3 f8b4 e2e3 e8g8", 30},
	{"King's Indian", "d2d4 g8f6 c2c4 g7g6 b1c3 f8g7 e2e4 d7d6 g1f3 e8g8", 30},
	{"English", "c2c4 e7e5 b1c3 g8f6 g1f3 b8c6 g2g3", 20},
	{"Reti", "g1f3 d7d5 g2g3 g8f6 f1g2 e7e6 e1g1 f8e7", 10},
}

// Default returns the built-in repertoire of classical main lines.
func Default() *Book {
	b := New()
	for _, l := range mainLines {
		if err := b.AddLine(l.moves, l.weight); err != nil {
			panic("book: " + l.name + ": " + err.Error())
		}
	}
	return b
}
