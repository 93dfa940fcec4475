package board

import "math/rand"

// CardEffect tags what drawing a card does to the drawer.
type CardEffect string

const (
	CardReceive     CardEffect = "receive"      // bank pays Amount
	CardPay         CardEffect = "pay"          // drawer pays Amount to bank
	CardMoveTo      CardEffect = "move_to"      // advance to Pos, GO salary if passed
	CardGoToJail    CardEffect = "go_to_jail"   //
	CardJailCard    CardEffect = "jail_card"    // get-out-of-jail token
	CardCollectEach CardEffect = "collect_each" // every other participant pays Amount
	CardPayEach     CardEffect = "pay_each"     // drawer pays Amount to every other participant
	CardRepairs     CardEffect = "repairs"      // Amount per house, HotelFee per hotel
)

// Card is one chance / community chest card.
type Card struct {
	Text     string
	Effect   CardEffect
	Amount   int64
	Pos      int
	HotelFee int64
}

// Deck cycles through a shuffled card list the way the physical deck does.
type Deck struct {
	cards []Card
	next  int
}

// NewDeck shuffles the given cards with rng and returns a cycling deck.
func NewDeck(cards []Card, rng *rand.Rand) *Deck {
	shuffled := make([]Card, len(cards))
	copy(shuffled, cards)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return &Deck{cards: shuffled}
}

// Draw returns the next card, cycling back to the top when exhausted.
func (d *Deck) Draw() Card {
	card := d.cards[d.next]
	d.next = (d.next + 1) % len(d.cards)
	return card
}

// ChanceCards returns the classic chance deck.
func ChanceCards() []Card {
	return []Card{
		{Text: "Advance to GO (Collect $200)", Effect: CardMoveTo, Pos: 0},
		{Text: "Advance to Illinois Avenue", Effect: CardMoveTo, Pos: 24},
		{Text: "Advance to St. Charles Place", Effect: CardMoveTo, Pos: 11},
		{Text: "Take a trip to Reading Railroad", Effect: CardMoveTo, Pos: 5},
		{Text: "Bank pays you dividend of $50", Effect: CardReceive, Amount: 50},
		{Text: "Get Out of Jail Free", Effect: CardJailCard},
		{Text: "Go to Jail. Do not pass GO", Effect: CardGoToJail},
		{Text: "Make general repairs on all your property", Effect: CardRepairs, Amount: 25, HotelFee: 100},
		{Text: "Pay poor tax of $15", Effect: CardPay, Amount: 15},
		{Text: "You have been elected Chairman of the Board. Pay each player $50", Effect: CardPayEach, Amount: 50},
		{Text: "Your building loan matures. Collect $150", Effect: CardReceive, Amount: 150},
	}
}

// ChestCards returns the classic community chest deck.
func ChestCards() []Card {
	return []Card{
		{Text: "Advance to GO (Collect $200)", Effect: CardMoveTo, Pos: 0},
		{Text: "Bank error in your favor. Collect $200", Effect: CardReceive, Amount: 200},
		{Text: "Doctor's fees. Pay $50", Effect: CardPay, Amount: 50},
		{Text: "From sale of stock you get $50", Effect: CardReceive, Amount: 50},
		{Text: "Get Out of Jail Free", Effect: CardJailCard},
		{Text: "Go to Jail. Do not pass GO", Effect: CardGoToJail},
		{Text: "Holiday fund matures. Receive $100", Effect: CardReceive, Amount: 100},
		{Text: "Income tax refund. Collect $20", Effect: CardReceive, Amount: 20},
		{Text: "It is your birthday. Collect $10 from every player", Effect: CardCollectEach, Amount: 10},
		{Text: "Pay hospital fees of $100", Effect: CardPay, Amount: 100},
		{Text: "Pay school fees of $50", Effect: CardPay, Amount: 50},
		{Text: "You are assessed for street repairs", Effect: CardRepairs, Amount: 40, HotelFee: 115},
		{Text: "You have won second prize in a beauty contest. Collect $10", Effect: CardReceive, Amount: 10},
	}
}
