package quotes

var TooLarge = tooLarge
