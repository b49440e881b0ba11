// Package subscription reference-counts topic interest from mounted
// views and keeps the server's push set in sync.
//
// The first subscriber of a topic triggers a SUBSCRIBE to the server;
// the last one leaving starts a short grace timer before UNSUBSCRIBE,
// which absorbs the mount/unmount churn of rapid route transitions.
package subscription
