// Command spool manages a durable, priority-ordered queue of file
// maintenance tasks. Tasks are enqueued from the command line, stored in
// SQLite, and executed sequentially by a worker started with `spool run`.
package main
