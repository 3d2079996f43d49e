package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// ListingDark colours listings on a dark terminal.
var ListingDark = styles.Register(chroma.MustNewStyle("listing-dark", chroma.StyleEntries{
	chroma.Text:       "#D4D4D4",
	chroma.Background: "bg:#1e1e1e",

	chroma.GenericHeading:   "bold #569CD6",
	chroma.NameLabel:        "bold #FFD700",
	chroma.LiteralNumberHex: "#B5CEA8",
	chroma.CommentSpecial:   "#FF5F87",
}))
