package mqtt

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// ConnectRetryInterval is the wait between failed initial connects.
const ConnectRetryInterval = 2 * time.Second

// Run implements framework.Runnable: it connects the Queue, keeps it
// connected until ctx is done, then disconnects. Once connected, paho
// reconnects automatically. BeforeClose runs right before disconnecting.
func (q *Queue) Run(ctx context.Context) error {
	for {
		token := q.Connect()
		token.Wait()
		err := token.Error()
		if err == nil {
			break
		}
		glog.Warningf("mqtt connect failed: %v", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ConnectRetryInterval):
		}
	}
	<-ctx.Done()
	if h := q.BeforeClose; h != nil {
		h(q)
	}
	return q.Close()
}
