// Package ui provides semantic text formatting for kahu's CLI output.
//
// Formatters colorize content when the terminal supports it. When NO_COLOR
// is set or colors are unavailable, text decorations are used instead:
//
//	ui.Command.Sprint("kahu profiles list")  // `kahu profiles list`
//	ui.Profile.Sprint("Main")                // 'Main'
//	ui.Account.Sprint("Main")                // <Main>
//	ui.Muted.Sprint("no saved password")     // (no saved password)
//
// Success, Error, Warning, Info and Path carry no decoration.
package ui
