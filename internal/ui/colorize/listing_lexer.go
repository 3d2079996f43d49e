package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// ListingLexer tokenises listing text: object banners, labels, hex bytes and
// relocated "??" bytes.
var ListingLexer = lexers.Register(chroma.MustNewLexer(
	&chroma.Config{
		Name:     "PsyQ Listing",
		Aliases:  []string{"psyq-listing"},
		EnsureNL: true,
	},
	func() chroma.Rules {
		return chroma.Rules{
			"root": {
				{Pattern: `==[^=\n]*==`, Type: chroma.GenericHeading},
				{Pattern: `[A-Za-z_.$][\w.$]*:`, Type: chroma.NameLabel},
				{Pattern: `\?\?`, Type: chroma.CommentSpecial},
				{Pattern: `[0-9A-Fa-f]{2}`, Type: chroma.LiteralNumberHex},
				{Pattern: `\s+`, Type: chroma.Text},
				{Pattern: `.`, Type: chroma.Text},
			},
		}
	},
))
