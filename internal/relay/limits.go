package relay

import "time"

// pingInterval is the cadence of the periodic PingFromHost keep-alive sent
// to the client. It is the only time-based cadence owned by the relay
// itself (spec §5) — ActionTickStream runs its own, independent cadence.
const pingInterval = 15 * time.Second

// inboundQueueBuffer sizes the channel background tasks (chat synth,
// stats, mute persistence) use to deliver synthesized packets back into
// the relay's dispatch path, and that a node-stream reader uses to
// forward genuine incoming node packets. A small buffer keeps producers
// from blocking on a momentarily busy relay loop without hiding a
// genuinely stuck consumer.
const inboundQueueBuffer = 32
