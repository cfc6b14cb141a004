package server

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/roomkit/relay/internal/types"
)

// pollStore holds a room's polls in creation order. Polls are never
// deleted, and every accepted mutation rebroadcasts the entire list;
// the populations involved are small enough that diffing isn't worth
// the protocol surface.
type pollStore struct {
	polls []*types.Poll
}

type pollList struct {
	Type  string        `json:"type"`
	Polls []*types.Poll `json:"polls"`
}

type createPollPayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type votePayload struct {
	PollId string `json:"pollId"`
	Option int    `json:"option"`
}

func (s *pollStore) connect(r *Room, c *Client) {
	r.send(c, r.marshalMessage(s.list("init")))
}

func (s *pollStore) message(r *Room, sender *Client, data []byte) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		r.log.Printf("room %q: drop malformed message: %v", r.id, err)
		return
	}

	switch msg.Type {
	case "identify":
		if ident, ok := parseIdentify(msg.Payload); ok {
			r.setIdentity(sender, ident)
		}
	case "create-poll":
		var create createPollPayload
		if err := json.Unmarshal(msg.Payload, &create); err != nil {
			return
		}

		s.createPoll(r, create)
	case "vote":
		var vote votePayload
		if err := json.Unmarshal(msg.Payload, &vote); err != nil {
			return
		}

		s.vote(r, vote)
	}
}

func (s *pollStore) disconnect(r *Room, c *Client) {}

func (s *pollStore) request(r *Room, method string) string { return "ok" }

// createPoll validates and appends a poll, then rebroadcasts the full
// list to everyone. Invalid input is silently ignored.
func (s *pollStore) createPoll(r *Room, create createPollPayload) {
	question := strings.TrimSpace(create.Question)
	if question == "" {
		return
	}

	var options []string
	for _, opt := range create.Options {
		if opt = strings.TrimSpace(opt); opt != "" {
			options = append(options, opt)
		}
	}
	if len(options) < 2 {
		return
	}

	votes := make(map[string]int, len(options))
	for i := range options {
		votes[strconv.Itoa(i)] = 0
	}

	s.polls = append(s.polls, &types.Poll{
		Id:       uuid.NewString(),
		Question: question,
		Options:  options,
		Votes:    votes,
	})

	r.broadcast(r.marshalMessage(s.list("polls")), nil)
}

func (s *pollStore) vote(r *Room, vote votePayload) {
	for _, poll := range s.polls {
		if poll.Id != vote.PollId {
			continue
		}

		if vote.Option < 0 || vote.Option >= len(poll.Options) {
			return
		}

		poll.Votes[strconv.Itoa(vote.Option)]++
		r.broadcast(r.marshalMessage(s.list("polls")), nil)
		return
	}
}

func (s *pollStore) list(msgType string) pollList {
	polls := s.polls
	if polls == nil {
		polls = []*types.Poll{}
	}

	return pollList{Type: msgType, Polls: polls}
}
