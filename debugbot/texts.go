// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugbot

// Fixed texts the bot sends. Texts with parameters are built where
// they are used.
const (
	WelcomeText = "Greetings! I am the DebugBot. I can simulate multiple other users so you can test things. " +
		"I understand a few commands. To see which ones, type 'usage'."
	WelcomeHelpText = "When connecting with me, you can say 'ignore', or 'deny' to make me ignore or deny requests, " +
		"and 'wait N' to make me wait N seconds (max 99) before reacting."
	ConnectedText = "Nice, we are connected!"

	NonTextText = "Whatever you sent me there, it was not a normal text message. " +
		"I'm expecting a message with a text body."

	crawlNotice = " - but I'll need to crawl the connection data first, please be patient."

	closeText      = "Ok, I'll close this connection"
	modifyText     = "Ok, I'll change my atom description."
	connectText    = "Ok, I'll create a new atom and make it send a connect to you."
	deactivateText = "Ok, I'll deactivate this atom. This will close the connection we are currently talking on."
	chattyOnText   = "Ok, I'll send you messages spontaneously from time to time."
	chattyOffText  = "Ok, from now on I will be quiet and only respond to your messages."
	cacheEagerText = "Ok, I'll put any message I receive or send into the message cache. " +
		"This slows down message processing in general, but operations that require crawling connection data will be faster."
	cacheLazyText = "Ok, I won't put messages I receive or send into the message cache. " +
		"This speeds up message processing in general, but operations that require crawling connection data will be slowed down."
	injectText = "Ok, I'll send you one message that will be injected into our other connections " +
		"if the inject permission is granted"
	injectedText = "This is the injected message."
)

// countingTexts are the bodies of the "send N" messages.
var countingTexts = []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}

// smallTalk is sent to chatty conversations that are still active.
var smallTalk = []string{
	"Is there anything I can do for you?",
	"Did you read the news today?",
	"By the way, don't you just love the weather these days?",
	"Type 'usage' to see what I can do for you!",
	"I think I might see a movie tonight",
}

// lastCalls is sent to chatty conversations that have gone quiet.
var lastCalls = []string{
	"?",
	"Are you still there?",
	"Gone?",
	"... cu later, I guess?",
	"Do you still require my services? You can use the 'close' command, you know...",
	"Ping?",
}
