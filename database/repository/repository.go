package repository

import (
	bookingRepo "pawhub/database/repository/booking"
	conversationRepo "pawhub/database/repository/conversation"
	messageRepo "pawhub/database/repository/message"
	reviewRepo "pawhub/database/repository/review"
)

// Re-export the BookingRepository interface and constructor.
type BookingRepository = bookingRepo.BookingRepository

var NewMongoBookingRepo = bookingRepo.NewMongoBookingRepo

// Re-export the MessageRepository interface and constructor.
type MessageRepository = messageRepo.MessageRepository

var NewMongoMessageRepo = messageRepo.NewMongoMessageRepo

// Re-export the ConversationRepository interface and constructor.
type ConversationRepository = conversationRepo.ConversationRepository

var NewMongoConversationRepo = conversationRepo.NewMongoConversationRepo

// Re-export the ReviewRepository interface and constructor.
type ReviewRepository = reviewRepo.ReviewRepository

var NewMongoReviewRepo = reviewRepo.NewMongoReviewRepo
