package nukleus

// MessagePredicate tests a typed frame. The buffer holds exactly one frame.
type MessagePredicate func(msgTypeID int32, buffer []byte) bool

// And returns a predicate that holds when both p and other hold.
// other is not evaluated when p fails.
func (p MessagePredicate) And(other MessagePredicate) MessagePredicate {
	return func(msgTypeID int32, buffer []byte) bool {
		return p(msgTypeID, buffer) && other(msgTypeID, buffer)
	}
}

// MessageFunction maps a typed frame to a value of type R.
type MessageFunction[R any] func(msgTypeID int32, buffer []byte) R

// MessageConsumer receives typed frames.
type MessageConsumer func(msgTypeID int32, buffer []byte)

// AcceptAll is a MessagePredicate that holds for every frame.
func AcceptAll(int32, []byte) bool {
	return true
}
