// Package viz renders runs in the terminal: lipgloss styles, asciigraph
// charts and a bubbletea model that steps a loop live while gains are tuned.
package viz
