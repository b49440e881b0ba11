package model

import "strings"

// Topic names group server events by entity collection. Collection-wide
// topics are bare names; per-list topics are "list:<id>".
const (
	TopicGifts     = "gifts"
	TopicLists     = "lists"
	TopicOccasions = "occasions"
	TopicPeople    = "people"
)

const listTopicPrefix = "list:"

// ListTopic returns the topic carrying events for one gift list.
func ListTopic(listID string) string {
	return listTopicPrefix + listID
}

// ParseListTopic extracts the list ID from a "list:<id>" topic.
func ParseListTopic(topic string) (listID string, ok bool) {
	if !strings.HasPrefix(topic, listTopicPrefix) {
		return "", false
	}
	id := topic[len(listTopicPrefix):]
	if id == "" {
		return "", false
	}
	return id, true
}

// GiftTopic returns the topic a gift's events arrive on: the owning
// list's topic when the gift belongs to a list, else the global gifts
// collection.
func GiftTopic(g Gift) string {
	if g.ListID != "" {
		return ListTopic(g.ListID)
	}
	return TopicGifts
}
