// Package chat connects to a Twitch channel over IRC. It posts change
// notifications to the channel and answers two commands:
//
//	!checkupdates  last update time and today's count for every title
//	!checkgroups   current member data for every group
//
// The bot needs TWITCH_CHANNEL, TWITCH_BOT_USERNAME and a TWITCH_OAUTH_TOKEN
// with chat:read and chat:edit scopes. Without them the bot is not started.
package chat
