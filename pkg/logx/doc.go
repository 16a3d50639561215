// Package logx configures the bot's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured, rotated by size with a bounded backlog
//
// Critical conditions are written at zerolog's fatal level through
// Logger.Critical, which never exits the process on its own. Such records
// carry "level":"fatal" and "severity":"critical".
package logx
