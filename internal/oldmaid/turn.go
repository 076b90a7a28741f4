package oldmaid

// endTurn passes the turn to the next unfinished player after the current
// one. When nobody else is left the turn stays put and only the end of game
// check runs.
func (g *Game) endTurn(out *outbox) {
	n := len(g.players)
	next := -1
	for step := 1; step < n; step++ {
		j := (g.currentTurn + step) % n
		if !g.players[j].Finished {
			next = j
			break
		}
	}
	if next >= 0 {
		g.currentTurn = next
		out.all(TurnChanged{CurrentTurn: g.players[next].ID})
	}
	g.checkGameEnd(out)
}

// checkGameEnd ends the round once a single unfinished player is left holding
// the trickster (or a lone card), or once nobody unfinished is left at all.
// It is a no-op after the round has ended.
func (g *Game) checkGameEnd(out *outbox) {
	if g.status != StatusPlaying {
		return
	}
	var last *Player
	active := 0
	for _, p := range g.players {
		if !p.Finished {
			active++
			last = p
		}
	}
	if active == 0 {
		g.finish(out, "", EndAbandoned)
		return
	}
	if active != 1 {
		return
	}
	switch {
	case last.Hand.HasTrickster(), last.Hand.Len() == 1:
		g.finish(out, last.ID, EndTrickster)
	case g.deck.Size() == 0 && g.cardsDeparted():
		// Cards that left with a departed player can never be paired again.
		g.finish(out, last.ID, EndAbandoned)
	}
}

func (g *Game) cardsDeparted() bool {
	for _, d := range g.departed {
		if len(d.Cards) > 0 {
			return true
		}
	}
	return false
}

func (g *Game) finish(out *outbox, loser PlayerID, reason EndReason) {
	g.status = StatusEnded
	g.loser = loser
	g.endReason = reason
	out.all(GameEnded{Winners: g.Winners(), Loser: loser, Reason: reason})
}

// Leave removes a player from the room.
//
// Before the game starts and after it ends the player simply goes away. While
// it is running they are taken out of the turn order and remembered in the
// departed list with the cards they held; the turn cursor is moved so it keeps
// pointing at a seated, unfinished player.
func (g *Game) Leave(id PlayerID) ([]Envelope, error) {
	idx := g.indexOf(id)
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}
	p := g.players[idx]
	g.players = append(g.players[:idx], g.players[idx+1:]...)
	if g.hostID == id {
		g.hostID = ""
		if len(g.players) > 0 {
			g.hostID = g.players[0].ID
		}
	}

	var out outbox
	if len(g.players) > 0 {
		out.all(PlayerLeft{ID: p.ID, Username: p.Username, HostID: g.hostID})
	}
	if g.status != StatusPlaying {
		return out, nil
	}

	g.departed = append(g.departed, Departed{
		ID:        p.ID,
		Username:  p.Username,
		PairCount: p.PairCount,
		Cards:     p.Hand.Cards(),
	})

	switch len(g.players) {
	case 0:
		g.status = StatusEnded
		g.endReason = EndAbandoned
		return out, nil
	case 1:
		g.addWinner(g.players[0].ID)
		g.finish(&out, "", EndLastPlayerStanding)
		return out, nil
	}

	n := len(g.players)
	turnMoved := idx == g.currentTurn
	if idx < g.currentTurn {
		g.currentTurn--
	}
	g.currentTurn %= n
	if g.players[g.currentTurn].Finished {
		for step := 1; step < n; step++ {
			j := (g.currentTurn + step) % n
			if !g.players[j].Finished {
				g.currentTurn = j
				turnMoved = true
				break
			}
		}
	}

	active := 0
	for _, pl := range g.players {
		if !pl.Finished {
			active++
		}
	}
	if active == 0 {
		g.finish(&out, "", EndAbandoned)
		return out, nil
	}
	if turnMoved {
		out.all(TurnChanged{CurrentTurn: g.players[g.currentTurn].ID})
	}
	g.checkGameEnd(&out)
	return out, nil
}
