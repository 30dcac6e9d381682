package types

// Log is an event entry emitted by the LOG0..LOG4 opcodes. Logs accumulate
// during a transaction and are truncated when the emitting frame reverts.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
}

// Copy returns a deep copy of the log entry.
func (l *Log) Copy() *Log {
	c := &Log{Address: l.Address}
	c.Topics = append([]Hash(nil), l.Topics...)
	c.Data = append([]byte(nil), l.Data...)
	return c
}
