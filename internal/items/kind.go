package items

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of item types.
type Kind int

const (
	MagnifyingGlass Kind = iota // reveals the current shell
	Cigarettes                  // restores 1 health
	Beer                        // ejects the current shell
	Handsaw                     // next live shell deals double damage
	Handcuffs                   // opponent skips their next turn
	BurnerPhone                 // reveals a random later shell
	Inverter                    // flips the current shell
	Adrenaline                  // steals and uses an opponent item
	ExpiredMedicine             // 50% +2 health, otherwise -1
	Jammer                      // a chosen opponent skips their next turn
	Remote                      // reverses turn order
)

// AllKinds lists every kind in declaration order.
var AllKinds = []Kind{
	MagnifyingGlass, Cigarettes, Beer, Handsaw, Handcuffs, BurnerPhone,
	Inverter, Adrenaline, ExpiredMedicine, Jammer, Remote,
}

// ErrUnknownKind is returned by ParseKind for unrecognised names.
var ErrUnknownKind = errors.New("unknown item")

const (
	unknownName        = "Unknown item"
	unknownDescription = "Unknown effect"
)

var names = map[Kind]string{
	MagnifyingGlass: "Magnifying Glass",
	Cigarettes:      "Cigarettes",
	Beer:            "Beer",
	Handsaw:         "Handsaw",
	Handcuffs:       "Handcuffs",
	BurnerPhone:     "Burner Phone",
	Inverter:        "Inverter",
	Adrenaline:      "Adrenaline",
	ExpiredMedicine: "Expired Medicine",
	Jammer:          "Jammer",
	Remote:          "Remote",
}

var descriptions = map[Kind]string{
	MagnifyingGlass: "Shows whether the current shell is live or blank",
	Cigarettes:      "Restores 1 health",
	Beer:            "Racks the shotgun, ejecting the current shell",
	Handsaw:         "The next live shell deals double damage",
	Handcuffs:       "The opponent skips their next turn",
	BurnerPhone:     "Reveals the type of a random later shell",
	Inverter:        "Swaps the current shell between live and blank",
	Adrenaline:      "Steal one opponent item and use it immediately",
	ExpiredMedicine: "50% chance to restore 2 health, otherwise lose 1",
	Jammer:          "A chosen opponent skips their next turn",
	Remote:          "Reverses the turn order",
}

// aliases maps lowercase spellings accepted on the command line.
var aliases = map[string]Kind{
	"magnifyingglass": MagnifyingGlass, "magnifying-glass": MagnifyingGlass, "glass": MagnifyingGlass, "magnifier": MagnifyingGlass,
	"cigarettes": Cigarettes, "cigarette": Cigarettes, "cig": Cigarettes, "smokes": Cigarettes,
	"beer": Beer,
	"handsaw": Handsaw, "saw": Handsaw,
	"handcuffs": Handcuffs, "cuffs": Handcuffs,
	"burnerphone": BurnerPhone, "burner-phone": BurnerPhone, "phone": BurnerPhone,
	"inverter": Inverter,
	"adrenaline": Adrenaline,
	"expiredmedicine": ExpiredMedicine, "expired-medicine": ExpiredMedicine, "medicine": ExpiredMedicine, "meds": ExpiredMedicine, "pills": ExpiredMedicine,
	"jammer": Jammer,
	"remote": Remote,
}

// NameOf returns the display name of k.
func NameOf(k Kind) string {
	if n, ok := names[k]; ok {
		return n
	}
	return unknownName
}

// DescriptionOf returns the one-line effect description of k.
func DescriptionOf(k Kind) string {
	if d, ok := descriptions[k]; ok {
		return d
	}
	return unknownDescription
}

func (k Kind) String() string { return NameOf(k) }

// ParseKind resolves a display name or alias, ignoring case and spaces.
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), ""))
	if k, ok := aliases[key]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Side is the owner of an item sequence.
type Side int

const (
	Player Side = iota
	Dealer
)

func (s Side) String() string {
	if s == Dealer {
		return "dealer"
	}
	return "player"
}

// ParseSide accepts "player"/"p"/"me" and "dealer"/"d".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "player", "p", "me":
		return Player, nil
	case "dealer", "d":
		return Dealer, nil
	}
	return 0, fmt.Errorf("unknown side %q (want player or dealer)", s)
}
