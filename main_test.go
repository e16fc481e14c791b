package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"crypto_analysis_backend/scheduler"
)

func TestSchedulerAssignedInBackgroundIsSeenByShutdown(t *testing.T) {
	setJobScheduler(nil)
	t.Cleanup(func() { setJobScheduler(nil) })

	assert.Nil(t, activeJobScheduler())

	s := &scheduler.Scheduler{}
	done := make(chan struct{})
	go func() {
		setJobScheduler(s)
		close(done)
	}()
	<-done

	assert.Same(t, s, activeJobScheduler())
}
