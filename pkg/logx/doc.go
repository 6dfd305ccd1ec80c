// Package logx provides the structured logging facade used across the bot.
//
// It wraps zerolog behind a small Logger value so services can keep a logger
// across config reloads: the Service swaps sinks/levels atomically while
// existing Logger values keep writing to the current root.
package logx
